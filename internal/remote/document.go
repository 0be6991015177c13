// Package remote adapts an optional network document store for per-user
// synchronization. Every caller must tolerate the store being absent.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnavailable is reported when the remote store cannot be reached.
var ErrUnavailable = errors.New("remote store unavailable")

// DocumentStore is the remote document capability. A document is a flat
// mapping of field name to JSON value.
type DocumentStore interface {
	// GetDocument returns the fields of document id, or an empty map when
	// the document does not exist.
	GetDocument(ctx context.Context, id string) (map[string]json.RawMessage, error)

	// SetDocument writes fields to document id. With merge set, fields not
	// listed are left untouched; otherwise the document is replaced.
	SetDocument(ctx context.Context, id string, fields map[string]json.RawMessage, merge bool) error
}

// RemoteError reports a failed remote read or write. It is logged by the
// caller and treated as absence of remote data; it never reaches the UI.
type RemoteError struct {
	Op  string
	Doc string
	Err error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("remote %s %s: %v", e.Op, e.Doc, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// IsRemoteError reports whether err (or any error in its chain) is a RemoteError.
func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

// Document ids.
const (
	userDataCollection = "userdata"
	userInfoCollection = "userinfo"
)

// UserDataID is the document holding a user's synchronized fields.
func UserDataID(userID string) string {
	return userDataCollection + "/" + userID
}

// UserInfoID is the document holding a user's profile.
func UserInfoID(userID string) string {
	return userInfoCollection + "/" + userID
}
