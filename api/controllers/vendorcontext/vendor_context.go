package vendorcontext

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/splitpay-backend/api/middleware"
	"github.com/angelmondragon/splitpay-backend/internal/stores"
	"github.com/angelmondragon/splitpay-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/splitpay-backend/pkg/errors"
)

// StoreFinder locates the store a vendor operates.
type StoreFinder interface {
	FindByVendorID(ctx context.Context, vendorID uuid.UUID) (*models.Store, error)
}

// ResolveVendorID extracts the authenticated vendor or rejects the request.
func ResolveVendorID(r *http.Request) (uuid.UUID, error) {
	vendorID, ok := middleware.VendorIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context required")
	}
	return vendorID, nil
}

// ResolveVendorStore loads the store owned by the authenticated vendor.
func ResolveVendorStore(r *http.Request, finder StoreFinder) (*models.Store, error) {
	vendorID, err := ResolveVendorID(r)
	if err != nil {
		return nil, err
	}
	if finder == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "store lookup unavailable")
	}
	store, err := finder.FindByVendorID(r.Context(), vendorID)
	if err != nil {
		if errors.Is(err, stores.ErrNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "store not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vendor store")
	}
	return store, nil
}
