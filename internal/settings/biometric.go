package settings

import (
	"context"
)

// BiometricAuthenticator abstracts the device's biometric prompt.
type BiometricAuthenticator interface {
	// Available reports whether hardware exists and biometrics are enrolled.
	Available(ctx context.Context) (bool, error)
	// Authenticate blocks on the device prompt.
	Authenticate(ctx context.Context) (bool, error)
}

// Gate blocks app launch behind the biometric prompt when the toggle is on.
// A device without hardware or enrollment passes the gate rather than locking
// the user out.
//
// retry is consulted after a failed prompt: true runs the prompt again,
// false abandons the launch.
func (m *Manager) Gate(ctx context.Context, auth BiometricAuthenticator, retry func() bool) (bool, error) {
	if !m.BiometricsEnabled(ctx) {
		return true, nil
	}

	avail, err := auth.Available(ctx)
	if err != nil {
		return false, err
	}
	if !avail {
		m.log.Info("biometric gate bypassed, no hardware or enrollment")
		return true, nil
	}

	for {
		ok, err := auth.Authenticate(ctx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
		if retry == nil || !retry() {
			return false, nil
		}
	}
}
