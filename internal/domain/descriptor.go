package domain

// Engine identifies which database adapter a descriptor targets.
type Engine string

const (
	EngineMySQL      Engine = "mysql"
	EngineMySQLProxy Engine = "mysql-proxy"
	EnginePostgres   Engine = "postgres"
	EngineSQLite     Engine = "sqlite"
)

// ConnectionDescriptor holds the full set of parameters needed to reach one
// database. It is immutable once a session has been created from it and is
// owned exclusively by the session store; it never appears in API responses.
type ConnectionDescriptor struct {
	Engine   Engine `json:"engine"`
	Name     string `json:"name"`
	Database string `json:"database"`

	// Direct engines (mysql, postgres)
	Host     string `json:"host,omitempty"`
	Port     int    `json:"port,omitempty"`
	Username string `json:"username,omitempty"`
	Password string `json:"password,omitempty"`
	SSLMode  string `json:"sslMode,omitempty"`

	// Proxied MySQL
	ProxyEndpoint string `json:"proxyEndpoint,omitempty"`
	ServerName    string `json:"serverName,omitempty"`

	// SQLite
	FilePath string `json:"filePath,omitempty"`
}
