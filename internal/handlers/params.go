package handlers

import (
	"fmt"
	"strconv"
)

func errBadParam(name string) error {
	return fmt.Errorf("неверное значение параметра %s", name)
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("ожидается неотрицательное число, получено %q", raw)
	}
	return v, nil
}
