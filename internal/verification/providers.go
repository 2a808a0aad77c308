package verification

import (
	"context"

	"kycgate/internal/identity"
)

// IdentityResult is the registry's answer to an identity verification call.
// Each field reports whether the declared value matched the registry record.
type IdentityResult struct {
	NameMatch       bool
	FatherNameMatch bool
	DOBMatch        bool
	IDValid         bool
	SessionRef      string
}

// BiometricResult is a face-template comparison outcome.
type BiometricResult struct {
	MatchScore float64
	SessionRef string
}

// LivenessResult carries the two independent scores a liveness session
// produces: the liveness detection itself and the face match against the
// submitted document photo.
type LivenessResult struct {
	LivenessScore  float64
	FaceMatchScore float64
	SessionRef     string
}

// IdentityProvider checks declared identity fields against the national
// registry. The interface is small so tests can stub quickly.
type IdentityProvider interface {
	Name() string
	VerifyIdentity(ctx context.Context, rec identity.Record) (IdentityResult, error)
}

// BiometricProvider compares a captured selfie against the registry photo.
type BiometricProvider interface {
	Name() string
	VerifyBiometric(ctx context.Context, cnic string, selfie []byte) (BiometricResult, error)
}

// LivenessProvider runs a liveness session over a captured video or image
// burst.
type LivenessProvider interface {
	Name() string
	CheckLiveness(ctx context.Context, cnic string, sample []byte) (LivenessResult, error)
}
