package web

import "github.com/gofiber/fiber/v2"

// Flash codes carried in the msg query parameter after a redirect. Only
// these fixed strings are ever shown; unknown codes show nothing.
const (
	FlashCreated         = "created"
	FlashSaved           = "saved"
	FlashDeleted         = "deleted"
	FlashSubmitted       = "submitted"
	FlashGraded          = "graded"
	FlashRegistered      = "registered"
	FlashLoggedOut       = "logged_out"
	FlashProfileUpdated  = "profile_updated"
	FlashAvatarUpdated   = "avatar_updated"
	FlashPasswordChanged = "password_changed"
)

var flashes = map[string]string{
	FlashCreated:         "Created successfully.",
	FlashSaved:           "Changes saved.",
	FlashDeleted:         "Deleted successfully.",
	FlashSubmitted:       "Your answer was submitted.",
	FlashGraded:          "Score saved.",
	FlashRegistered:      "Registration complete. Please log in.",
	FlashLoggedOut:       "You have been logged out.",
	FlashProfileUpdated:  "Profile updated.",
	FlashAvatarUpdated:   "Avatar updated.",
	FlashPasswordChanged: "Password changed.",
}

func Flash(c *fiber.Ctx) string {
	return flashes[c.Query("msg")]
}

// RedirectWith redirects to path with a flash code. path is always built by
// the caller from server-side values.
func RedirectWith(c *fiber.Ctx, path, code string) error {
	return c.Redirect(path + "?msg=" + code)
}
