package config

// NewSlackForTest creates a Slack config for testing purposes
func NewSlackForTest(clientID, clientSecret, signingSecret, apiURL, redirectURI string) *Slack {
	return &Slack{
		clientID:      clientID,
		clientSecret:  clientSecret,
		signingSecret: signingSecret,
		apiURL:        apiURL,
		redirectURI:   redirectURI,
	}
}

// NewPostgresForTest creates a Postgres config for testing purposes
func NewPostgresForTest(url string, maxConns int64) *Postgres {
	return &Postgres{url: url, maxConns: maxConns}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{level: level, format: format, output: output}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend string) *Repository {
	return &Repository{backend: backend}
}
