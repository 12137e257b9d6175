package protocol

import "errors"

// EncodeMessage serializes a complete message: command line, attributes in
// order, terminator.
func EncodeMessage(cmd Key, attrs []Attr) []byte {
	b := NewMessageBuffer(MaxResponseSize)
	b.AppendCommand(cmd, Version)
	for _, a := range attrs {
		b.AppendAttr(a)
	}
	b.End()
	return b.Bytes()
}

// EncodeResponse serializes a successful reply. errno=0 is appended after
// attrs unless attrs already carry an errno.
func EncodeResponse(cmd Key, attrs []Attr) []byte {
	for _, a := range attrs {
		if a.Key == KeyErrno {
			return EncodeMessage(cmd, attrs)
		}
	}
	return EncodeMessage(cmd, append(attrs[:len(attrs):len(attrs)], Uint32Attr(KeyErrno, uint32(CodeOK))))
}

// EncodeError serializes an error reply carrying the code of err and its
// message, truncated to the errmsg cap. A cmd of KeyUnknown (no command line
// parsed yet) is answered as a request.
func EncodeError(cmd Key, err error) []byte {
	if !cmd.IsCommand() {
		cmd = KeyRequest
	}
	return EncodeMessage(cmd, []Attr{
		Uint32Attr(KeyErrno, uint32(CodeOf(err))),
		ErrmsgAttr(errmsg(err)),
	})
}

// errmsg is the text sent for err: the detail of a protocol error without
// the code prefix, which the errno already carries.
func errmsg(err error) string {
	var pe *Error
	switch {
	case err == nil:
		return ""
	case errors.As(err, &pe) && pe.Msg != "":
		return pe.Msg
	case errors.As(err, &pe):
		return pe.Code.String()
	default:
		return err.Error()
	}
}

// ResponseError turns the errno/errmsg attributes of a parsed reply into an
// error. It returns nil when errno is absent or zero.
func ResponseError(r *Request) error {
	a, ok := r.Attr(KeyErrno)
	if !ok {
		return nil
	}
	code := Code(a.Value.(Uint32))
	if code == CodeOK {
		return nil
	}
	msg := ""
	if m, ok := r.Attr(KeyErrmsg); ok {
		msg = m.Value.Text()
	}
	return &Error{Code: code, Msg: msg}
}
