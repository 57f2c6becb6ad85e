package mongodb

import (
	"testing"
)

func TestValidateMongoURI(t *testing.T) {
	tests := []struct {
		name    string
		uri     string
		wantErr bool
	}{
		{
			name:    "valid mongodb URI",
			uri:     "mongodb://localhost:27017",
			wantErr: false,
		},
		{
			name:    "valid mongodb+srv URI",
			uri:     "mongodb+srv://cluster.mongodb.net",
			wantErr: false,
		},
		{
			name:    "empty URI",
			uri:     "",
			wantErr: true,
		},
		{
			name:    "invalid scheme",
			uri:     "http://localhost:27017",
			wantErr: true,
		},
		{
			name:    "invalid scheme - postgres",
			uri:     "postgres://localhost:5432",
			wantErr: true,
		},
		{
			name:    "missing host",
			uri:     "mongodb://",
			wantErr: true,
		},
		{
			name:    "malformed URI",
			uri:     "not-a-valid-uri",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateMongoURI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateMongoURI() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateDatabaseName(t *testing.T) {
	tests := []struct {
		name     string
		database string
		wantErr  bool
	}{
		{
			name:     "valid name",
			database: "marketplace",
			wantErr:  false,
		},
		{
			name:     "empty database name",
			database: "",
			wantErr:  true,
		},
		{
			name:     "invalid database name with slash",
			database: "test/db",
			wantErr:  true,
		},
		{
			name:     "invalid database name with backslash",
			database: "test\\db",
			wantErr:  true,
		},
		{
			name:     "invalid database name with dot",
			database: "test.db",
			wantErr:  true,
		},
		{
			name:     "invalid database name with special chars",
			database: "test$db",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateDatabaseName(tt.database)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateDatabaseName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewMongoClient_RejectsBadInputBeforeDialing(t *testing.T) {
	_, err := NewMongoClient("http://localhost:27017", "marketplace")
	if err == nil {
		t.Fatal("expected URI validation error")
	}

	_, err = NewMongoClient("mongodb://localhost:27017", "bad/name")
	if err == nil {
		t.Fatal("expected database name validation error")
	}
}
