// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import "strconv"

// IntToStr converts an int to string.
func IntToStr(i int) string {
	return strconv.Itoa(i)
}

// Int64ToStr converts an int64 to string.
func Int64ToStr(i int64) string {
	return strconv.FormatInt(i, 10)
}

// FloatToStr converts a float64 to string with 2 decimal places.
func FloatToStr(f float64) string {
	return strconv.FormatFloat(f, 'f', 2, 64)
}

// FloatToStrPrec converts a float64 to string with the given decimal precision.
func FloatToStrPrec(f float64, prec int) string {
	return strconv.FormatFloat(f, 'f', prec, 64)
}
