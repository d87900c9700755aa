package content

import (
	"fmt"

	ferrors "git.home.luguber.info/inful/jellsite/internal/foundation/errors"
)

// DiscoveryError reports a source file that could not be read or classified.
type DiscoveryError struct {
	Path   string
	Reason string
	Err    error
}

func (e *DiscoveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("discovery %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("discovery %s: %s", e.Path, e.Reason)
}

func (e *DiscoveryError) Unwrap() error                   { return e.Err }
func (e *DiscoveryError) Category() ferrors.ErrorCategory { return ferrors.CategoryDiscovery }

// FrontMatterError reports a malformed front matter block.
type FrontMatterError struct {
	Path string
	Err  error
}

func (e *FrontMatterError) Error() string {
	return fmt.Sprintf("front matter %s: %v", e.Path, e.Err)
}

func (e *FrontMatterError) Unwrap() error                   { return e.Err }
func (e *FrontMatterError) Category() ferrors.ErrorCategory { return ferrors.CategoryFrontMatter }

// ConversionError reports a body that the converter could not turn into HTML.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("convert %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error                   { return e.Err }
func (e *ConversionError) Category() ferrors.ErrorCategory { return ferrors.CategoryFrontMatter }
