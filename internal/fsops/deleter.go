package fsops

// Deleter abstracts filesystem delete operations
// Enables mocking in tests to prove a declined or dry run never deletes
type Deleter interface {
	Remove(path string) error
}
