package catalog

import "relay/pkg/models"

// Event-type codes for the asset sync envelopes built by the dispatch
// service. They are seeded into the catalog so a fresh deployment can
// dispatch before anyone has touched the management API.
const (
	EventTypeAssetSyncNew    = "asset.sync.new"
	EventTypeAssetSyncUpdate = "asset.sync.update"
)

func DefaultSchemas() []models.EventSchema {
	return []models.EventSchema{
		{
			Code:        EventTypeAssetSyncNew,
			Description: "First sync of an asset to a subscribing tenant",
			RequiredFields: []string{
				"asset_id",
				"path",
				"metadata",
				"tenant_id",
				"presigned_url",
			},
			SecretHeader:  true,
			SignedPayload: true,
		},
		{
			Code:        EventTypeAssetSyncUpdate,
			Description: "Change to an asset a tenant has already synced",
			RequiredFields: []string{
				"asset_id",
				"tenant_id",
			},
			SecretHeader:  true,
			SignedPayload: false,
		},
	}
}
