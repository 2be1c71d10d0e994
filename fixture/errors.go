package fixture

import "errors"

var (
	errUnknownPost   = errors.New("no such post")
	errUnknownParent = errors.New("no such parent comment")
)
