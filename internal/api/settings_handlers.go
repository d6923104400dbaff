package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Nishan666/roomchat/internal/settings"
)

// settingsManager builds the caller's settings view over their KV namespace.
// Grant-dependent operations supply the device-reported grants per request;
// the server never sees the OS dialogs itself.
func (s *Server) settingsManager(email string, grants settings.ReportedGrants) *settings.Manager {
	return settings.NewManager(s.sessions.KVForUser(email), grants, s.log)
}

func (s *Server) getSettings(c *fiber.Ctx) error {
	email, _ := identity(c)
	mgr := s.settingsManager(email, nil)
	ctx := c.Context()
	return c.JSON(fiber.Map{
		"dark_mode":     mgr.DarkMode(ctx),
		"language":      mgr.Language(ctx),
		"biometrics":    mgr.BiometricsEnabled(ctx),
		"location":      mgr.PermissionEnabled(ctx, settings.PermissionLocation),
		"notifications": mgr.PermissionEnabled(ctx, settings.PermissionNotifications),
	})
}

type updateSettingsReq struct {
	DarkMode *bool   `json:"dark_mode"`
	Language *string `json:"language"`
}

func (s *Server) updateSettings(c *fiber.Ctx) error {
	var req updateSettingsReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	email, _ := identity(c)
	mgr := s.settingsManager(email, nil)
	ctx := c.Context()

	if req.DarkMode != nil {
		if err := mgr.SetDarkMode(ctx, *req.DarkMode); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	}
	if req.Language != nil {
		if err := mgr.SetLanguage(ctx, *req.Language); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
	}
	return s.getSettings(c)
}

func (s *Server) toggleBiometrics(c *fiber.Ctx) error {
	email, _ := identity(c)
	mgr := s.settingsManager(email, nil)
	enabled, err := mgr.ToggleBiometrics(c.Context())
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(fiber.Map{"biometrics": enabled})
}

type updatePermissionReq struct {
	Permission string `json:"permission"`
	Enabled    bool   `json:"enabled"`
	// Granted is the outcome of the OS dialog the device just showed.
	Granted bool `json:"granted"`
}

func parsePermission(name string) (settings.Permission, bool) {
	switch name {
	case string(settings.PermissionLocation):
		return settings.PermissionLocation, true
	case string(settings.PermissionNotifications):
		return settings.PermissionNotifications, true
	}
	return "", false
}

func (s *Server) updatePermission(c *fiber.Ctx) error {
	var req updatePermissionReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}
	perm, ok := parsePermission(req.Permission)
	if !ok {
		return fiber.NewError(fiber.StatusBadRequest, "unknown permission")
	}

	email, _ := identity(c)
	mgr := s.settingsManager(email, settings.ReportedGrants{perm: req.Granted})

	err := mgr.SetPermission(c.Context(), perm, req.Enabled)
	switch {
	case err == nil:
		return c.JSON(fiber.Map{"status": "saved"})
	case errors.Is(err, settings.ErrOpenSettings):
		// intent is recorded; the device has to send the user to system settings
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"action": "open_settings"})
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

type reconcileReq struct {
	LocationGranted      bool `json:"location_granted"`
	NotificationsGranted bool `json:"notifications_granted"`
}

// reconcilePermissions overwrites the stored mirrors with the grants the
// device reports on foreground.
func (s *Server) reconcilePermissions(c *fiber.Ctx) error {
	var req reconcileReq
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid payload")
	}

	email, _ := identity(c)
	mgr := s.settingsManager(email, settings.ReportedGrants{
		settings.PermissionLocation:      req.LocationGranted,
		settings.PermissionNotifications: req.NotificationsGranted,
	})
	if err := mgr.Reconcile(c.Context()); err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	return s.getSettings(c)
}
