package models

// SQLDatabase is the view of an Azure SQL database the database rules inspect.
type SQLDatabase struct {
	ID            string
	Name          string
	ServerName    string
	ResourceGroup string
	ZoneRedundant bool

	// ReplicationLinks is the number of geo-replication links on the database.
	// A database that is itself a geo-secondary reports IsSecondary instead.
	ReplicationLinks int
	IsSecondary      bool
}

// GeoReplicated reports whether the database participates in geo-replication,
// either as a primary with at least one link or as a secondary replica.
func (d SQLDatabase) GeoReplicated() bool {
	return d.ReplicationLinks >= 1 || d.IsSecondary
}
