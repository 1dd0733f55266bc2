package apperror

import "errors"

// Kind はエラーの分類を表す
type Kind string

const (
	KindValidation    Kind = "validation"
	KindNotFound      Kind = "not_found"
	KindCapacity      Kind = "capacity"
	KindLimitExceeded Kind = "limit_exceeded"
	KindState         Kind = "state"
	KindConflict      Kind = "conflict"
)

// Error はドメイン層が返す分類付きエラー
// ドメインパッケージはセンチネルとして宣言し、errors.Is で同一性を判定する
type Error struct {
	Kind    Kind
	Reason  string
	Message string
}

// New は新しい分類付きエラーを作成する
func New(kind Kind, reason, message string) *Error {
	return &Error{Kind: kind, Reason: reason, Message: message}
}

func (e *Error) Error() string {
	return e.Message
}

// As はエラーチェーンから *Error を取り出す
func As(err error) (*Error, bool) {
	var ae *Error
	if errors.As(err, &ae) {
		return ae, true
	}
	return nil, false
}

// KindOf はエラーチェーン中の分類を返す
func KindOf(err error) (Kind, bool) {
	if ae, ok := As(err); ok {
		return ae.Kind, true
	}
	return "", false
}

// IsKind はエラーが指定した分類かを返す
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}
