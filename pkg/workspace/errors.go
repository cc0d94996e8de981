package workspace

import (
	"errors"

	"github.com/rexliu/pdfmarks/pkg/codec"
	"github.com/rexliu/pdfmarks/pkg/core"
	"github.com/rexliu/pdfmarks/pkg/ipc"
	"github.com/rexliu/pdfmarks/pkg/pdfoutline"
	"github.com/rexliu/pdfmarks/pkg/picker"
	"github.com/rexliu/pdfmarks/pkg/preview"
	"github.com/rexliu/pdfmarks/pkg/session"
	"github.com/rexliu/pdfmarks/pkg/storage/sqlite"
	"github.com/rexliu/pdfmarks/pkg/vcs/git"
	"github.com/rexliu/pdfmarks/pkg/view"
)

var validation = []error{
	codec.ErrEmptyTree,
	codec.ErrMalformed,
	core.ErrBlankTitle,
	core.ErrInvalidNode,
	core.ErrInvalidParent,
	core.ErrInvalidIndex,
	core.ErrInvalidColor,
	core.ErrInvalidStyle,
	core.ErrInvalidZoom,
	core.ErrInvalidPage,
	view.ErrUnknownGroup,
	pdfoutline.ErrUnreadable,
}

// Code classifies err into a wire error code shared by the IPC and HTTP
// transports.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound), errors.Is(err, sqlite.ErrNotFound):
		return ipc.CodeNotFound
	case errors.Is(err, session.ErrNotConfirmed):
		return ipc.CodeNotConfirmed
	case errors.Is(err, session.ErrNoDocument),
		errors.Is(err, preview.ErrNoDocument),
		errors.Is(err, session.ErrUnknownViewAction),
		errors.Is(err, picker.ErrPickingActive),
		errors.Is(err, picker.ErrNotPicking):
		return ipc.CodeInvalidRequest
	case errors.Is(err, session.ErrSaveFailed):
		return ipc.CodeExportFailed
	case errors.Is(err, ErrVCSDisabled), errors.Is(err, git.ErrNoRemote):
		return ipc.CodeVCSError
	}
	for _, target := range validation {
		if errors.Is(err, target) {
			return ipc.CodeValidationFailed
		}
	}
	return ipc.CodeInternal
}
