package settings

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/Nishan666/roomchat/internal/session"
)

// Persisted toggle keys.
const (
	KeyTheme         = "theme"
	KeyLanguage      = "language"
	KeyBiometrics    = "biometrics"
	KeyLocation      = "locationPermission"
	KeyNotifications = "notificationPermission"
)

type Permission string

const (
	PermissionLocation      Permission = "location"
	PermissionNotifications Permission = "notifications"
)

// ErrOpenSettings tells the caller the OS will not change the grant from
// inside the app; the user has to flip it in system settings. The in-app
// mirror already records the intended state.
var ErrOpenSettings = errors.New("grant change requires system settings")

// PermissionService abstracts the OS permission dialogs.
type PermissionService interface {
	// Request shows the dialog and reports whether the grant was given.
	Request(ctx context.Context, p Permission) (bool, error)
	// Status reports the current grant without prompting.
	Status(ctx context.Context, p Permission) (bool, error)
}

// ReportedGrants is a PermissionService backed by grant outcomes the device
// already reported, for callers that sit on the far side of the OS dialog.
// Unreported permissions read as not granted.
type ReportedGrants map[Permission]bool

func (g ReportedGrants) Request(_ context.Context, p Permission) (bool, error) { return g[p], nil }
func (g ReportedGrants) Status(_ context.Context, p Permission) (bool, error)  { return g[p], nil }

// Manager mirrors each toggle to the KV store and round-trips the
// location/notification toggles through the OS permission dialogs.
type Manager struct {
	kv    session.KV
	perms PermissionService
	log   *zap.Logger
}

func NewManager(kv session.KV, perms PermissionService, log *zap.Logger) *Manager {
	return &Manager{kv: kv, perms: perms, log: log}
}

func (m *Manager) getBool(ctx context.Context, key string) bool {
	raw, err := m.kv.Get(ctx, key)
	if err != nil {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false
	}
	return v
}

func (m *Manager) setBool(ctx context.Context, key string, v bool) error {
	return m.kv.Set(ctx, key, strconv.FormatBool(v))
}

func (m *Manager) DarkMode(ctx context.Context) bool { return m.getBool(ctx, KeyTheme) }

func (m *Manager) SetDarkMode(ctx context.Context, on bool) error {
	return m.setBool(ctx, KeyTheme, on)
}

func (m *Manager) Language(ctx context.Context) string {
	raw, err := m.kv.Get(ctx, KeyLanguage)
	if err != nil {
		return "en"
	}
	return raw
}

func (m *Manager) SetLanguage(ctx context.Context, code string) error {
	return m.kv.Set(ctx, KeyLanguage, code)
}

func (m *Manager) BiometricsEnabled(ctx context.Context) bool {
	return m.getBool(ctx, KeyBiometrics)
}

// ToggleBiometrics flips the gate. Disabling removes the key entirely, the
// same as never having enabled it.
func (m *Manager) ToggleBiometrics(ctx context.Context) (bool, error) {
	if m.BiometricsEnabled(ctx) {
		return false, m.kv.Delete(ctx, KeyBiometrics)
	}
	return true, m.setBool(ctx, KeyBiometrics, true)
}

func (m *Manager) PermissionEnabled(ctx context.Context, p Permission) bool {
	return m.getBool(ctx, keyFor(p))
}

// SetPermission records the intended state. Enabling prompts through the OS
// dialog; a refusal keeps the intent recorded and returns ErrOpenSettings.
// Disabling cannot revoke the OS grant, so it also returns ErrOpenSettings
// after persisting the intent. Reconcile squares the mirror with reality.
func (m *Manager) SetPermission(ctx context.Context, p Permission, on bool) error {
	if err := m.setBool(ctx, keyFor(p), on); err != nil {
		return err
	}
	if !on {
		return ErrOpenSettings
	}
	granted, err := m.perms.Request(ctx, p)
	if err != nil {
		m.log.Warn("permission request failed", zap.String("permission", string(p)), zap.Error(err))
		return err
	}
	if !granted {
		return ErrOpenSettings
	}
	return nil
}

// Reconcile overwrites the permission mirrors with the OS's actual grant
// status. Called when the app returns to the foreground.
func (m *Manager) Reconcile(ctx context.Context) error {
	for _, p := range []Permission{PermissionLocation, PermissionNotifications} {
		granted, err := m.perms.Status(ctx, p)
		if err != nil {
			return err
		}
		if err := m.setBool(ctx, keyFor(p), granted); err != nil {
			return err
		}
	}
	return nil
}

func keyFor(p Permission) string {
	if p == PermissionLocation {
		return KeyLocation
	}
	return KeyNotifications
}
