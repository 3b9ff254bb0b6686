package redis

import (
	"context"
	"errors"

	"github.com/stillmind/stillmind-hub/internal/domain/notification"
	"github.com/stillmind/stillmind-hub/internal/domain/shared"
)

// AddressResolver implements notification.Resolver against the delivery
// addresses the frame host writes under notify:<fid> when a user adds the
// app. Used as the fallback when no address is stored with the preference.
type AddressResolver struct {
	kv *KV
}

// NewAddressResolver creates an AddressResolver.
func NewAddressResolver(kv *KV) *AddressResolver {
	return &AddressResolver{kv: kv}
}

// Resolve returns the host-side delivery address for fid.
func (r *AddressResolver) Resolve(ctx context.Context, fid string) (notification.Address, error) {
	var addr notification.Address
	err := r.kv.Get(ctx, NotifyKey(fid), &addr)
	if err != nil {
		if errors.Is(err, ErrKeyMiss) {
			return notification.Address{}, shared.NewDomainError("notification", "Resolve",
				shared.ErrNotFound, "no delivery address on file")
		}
		return notification.Address{}, shared.WrapError("notification", "Resolve",
			shared.ErrStoreUnavailable, "reading delivery address", err)
	}

	if !addr.Valid() {
		return notification.Address{}, shared.NewDomainError("notification", "Resolve",
			shared.ErrNotFound, "incomplete delivery address on file")
	}

	return addr, nil
}
