package common

import "errors"

// ErrStaleVersion - запись изменилась между чтением и сохранением.
var ErrStaleVersion = errors.New("entity was modified concurrently")
