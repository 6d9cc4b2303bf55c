package sl

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "simple error",
			err:  errors.New("connection refused"),
			want: "connection refused",
		},
		{
			name: "wrapped error keeps full text",
			err:  errors.New("storage.Extend: context canceled"),
			want: "storage.Extend: context canceled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			attr := Err(tt.err)
			assert.Equal(t, "error", attr.Key)
			assert.Equal(t, slog.KindString, attr.Value.Kind())
			assert.Equal(t, tt.want, attr.Value.String())
		})
	}
}
