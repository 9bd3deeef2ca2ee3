package cookiejar

import "fmt"

// CodeCreateFile is the error code reported when a cache directory or file cannot be written.
const CodeCreateFile = 9001

// CacheError reports a failed write to the cookie cache. It never aborts a request.
type CacheError struct {
	Op   string
	Path string
	Err  error
}

func (e *CacheError) Error() string {
	return fmt.Sprintf("cookie cache %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *CacheError) Unwrap() error {
	return e.Err
}

// Code returns CodeCreateFile.
func (e *CacheError) Code() int {
	return CodeCreateFile
}
