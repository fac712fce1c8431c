// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/jobhub/internal/app/store/memstore"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app. Exactly one of the
// Mongo fields or Memory is set, according to store_backend.
type DBDeps struct {
	Backend string

	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database

	Memory *memstore.DB

	// Services is allocated by ConnectDB and populated by Startup so that
	// BuildHandler and Shutdown see the same instances.
	Services *Services
}
