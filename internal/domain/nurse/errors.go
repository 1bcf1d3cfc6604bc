package nurse

import "errors"

var ErrNurseNotFound = errors.New("nurse not found")
