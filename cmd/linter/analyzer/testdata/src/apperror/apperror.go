package apperror

type Kind int

const (
	KindAuth Kind = iota
	KindFetch
	KindWrite
)

type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string { return e.Op }

func New(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

func Auth(op string, err error) error  { return New(KindAuth, op, err) }
func Fetch(op string, err error) error { return New(KindFetch, op, err) }
func Write(op string, err error) error { return New(KindWrite, op, err) }

func IsKind(err error, kind Kind) bool { return err != nil }
