package firestore

import (
	"github.com/m-mizutani/fireconf"
)

// IndexConfig returns the composite indexes the repository queries need
func IndexConfig(collectionPrefix string) *fireconf.Config {
	return &fireconf.Config{
		Collections: []fireconf.Collection{
			{
				Name: collectionName(collectionPrefix, roomsCollection),
				Indexes: []fireconf.Index{
					// ListStale: organization_id ==, deleted ==, last_platform_update < ordered ASC
					{
						QueryScope: fireconf.QueryScopeCollection,
						Fields:     []fireconf.IndexField{
							{Path: "organization_id", Order: fireconf.OrderAscending},
							{Path: "deleted", Order: fireconf.OrderAscending},
							{Path: "last_platform_update", Order: fireconf.OrderAscending},
						},
					},
				},
			},
		},
	}
}
