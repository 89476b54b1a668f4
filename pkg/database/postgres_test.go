package database

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pjecz/hercules/pkg/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.DatabaseConfig
		want string
	}{
		{
			name: "tcp host",
			cfg:  config.DatabaseConfig{Host: "localhost", Port: 5432, User: "admin", Password: "secreto", Name: "pjecz_hercules", SSLMode: "disable"},
			want: "application_name=hercules connect_timeout=5 dbname=pjecz_hercules host=localhost password=secreto port=5432 sslmode=disable user=admin",
		},
		{
			name: "socket directory drops the port",
			cfg:  config.DatabaseConfig{Host: "/cloudsql/pjecz:us-west2:hercules", Port: 5432, User: "admin", Password: "x", Name: "db"},
			want: "application_name=hercules connect_timeout=5 dbname=db host=/cloudsql/pjecz:us-west2:hercules password=x user=admin",
		},
		{
			name: "password with spaces and quotes",
			cfg:  config.DatabaseConfig{Host: "db", User: "admin", Password: `a b'c\d`, Name: "db"},
			want: `application_name=hercules connect_timeout=5 dbname=db host=db password='a b\'c\\d' user=admin`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DSN(tt.cfg))
		})
	}
}
