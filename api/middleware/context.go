package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/pkg/enums"
)

type actorKey struct{}

// Actor is the authenticated caller. VendorID is uuid.Nil for admins.
type Actor struct {
	Role     enums.MemberRole
	VendorID uuid.UUID
}

// WithActor stores the caller on ctx.
func WithActor(ctx context.Context, actor Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the caller seeded by Auth.
func ActorFromContext(ctx context.Context) (Actor, bool) {
	if ctx == nil {
		return Actor{}, false
	}
	actor, ok := ctx.Value(actorKey{}).(Actor)
	return actor, ok
}

// WithVendorID marks ctx as a vendor caller acting for vendorID.
func WithVendorID(ctx context.Context, vendorID uuid.UUID) context.Context {
	return WithActor(ctx, Actor{Role: enums.MemberRoleVendor, VendorID: vendorID})
}

// VendorIDFromContext returns the vendor the authenticated caller acts for.
func VendorIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	actor, _ := ActorFromContext(ctx)
	return actor.VendorID, actor.VendorID != uuid.Nil
}

func RoleFromContext(ctx context.Context) enums.MemberRole {
	actor, _ := ActorFromContext(ctx)
	return actor.Role
}
