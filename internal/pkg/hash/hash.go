package hash

// Hash turns a plaintext secret into its stored form and checks candidates
// against it.
type Hash interface {
	Hash(plaintext string) ([]byte, error)
	Verify(hashed, plaintext string) bool
}
