package model

import "github.com/Laisky/fingenius-compliance/library/apierr"

// InvalidCredentialsMessage is shared by the unknown-email and wrong-password paths.
const InvalidCredentialsMessage = "Invalid email or password"

// ErrInvalidCredentials indicates the login credentials are invalid.
var ErrInvalidCredentials = apierr.New(apierr.CodeInvalidCredentials, InvalidCredentialsMessage)
