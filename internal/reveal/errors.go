/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package reveal

import "errors"

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrUnknownTrack    = errors.New("unknown track")
	ErrUnknownProfile  = errors.New("unknown timing profile")
	ErrInvalidProfile  = errors.New("invalid timing profile")
)
