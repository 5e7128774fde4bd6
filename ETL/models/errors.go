package models

import "errors"

// ErrAborted сигнализирует о кооперативной отмене задачи между пакетами
var ErrAborted = errors.New("задача отменена")
