package storage

import "io"

// BlobStore holds uploaded images: quiz thumbnails, question and answer
// illustrations. Keys are relative paths handed back to clients verbatim.
type BlobStore interface {
	Put(key string, r io.Reader) (string, error) // returns canonical key
	Get(key string) (io.ReadCloser, error)
	Delete(key string) error
}
