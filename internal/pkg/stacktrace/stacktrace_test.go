package stacktrace

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInternalPaths(t *testing.T) {
	stack := []byte(`goroutine 1 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/credbite/internal/identity/usecase.(*Usecase).VerifyMFA(...)
	/src/credbite/internal/identity/usecase/mfa_verify.go:42 +0x1a
main.main()
	/src/credbite/main.go:10 +0x25
`)

	assert.Equal(t, []string{"internal/identity/usecase/mfa_verify.go:42"}, InternalPaths(stack))
	assert.Empty(t, InternalPaths([]byte("nothing here")))
}
