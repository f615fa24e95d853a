package testing

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "github.com/lib/pq"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/require"
)

const (
	PostgresUser     = "postgres"
	PostgresPassword = "postgres"
	PostgresDB       = "fitness"
)

// PostgresConnString for a container started by StartPostgres.
func PostgresConnString(port string) string {
	return fmt.Sprintf(
		"postgres://%s:%s@localhost:%s/%s?sslmode=disable",
		PostgresUser, PostgresPassword, port, PostgresDB,
	)
}

// StartPostgres runs a throwaway postgres container and returns its host port
// once it accepts connections. The container goes away with the test.
func StartPostgres(t *testing.T) string {
	t.Helper()

	// uses a sensible default on windows (tcp/http) and linux/osx (socket)
	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not create new dockertest pool")
	require.NoError(t, pool.Client.Ping(), "could not ping dockertest pool")
	pool.MaxWait = time.Minute

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "postgres",
		Tag:        "16",
		Env: []string{
			"POSTGRES_USER=" + PostgresUser,
			"POSTGRES_PASSWORD=" + PostgresPassword,
			"POSTGRES_DB=" + PostgresDB,
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{
			Name: "no",
		}
	})
	require.NoError(t, err, "dockerpool run postgres")
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purge postgres container: %s", err)
		}
	})
	// in case the test binary gets killed
	_ = resource.Expire(300)

	port := resource.GetPort("5432/tcp")
	connString := PostgresConnString(port)

	require.NoError(t, pool.Retry(func() error {
		db, err := sql.Open("postgres", connString)
		if err != nil {
			return err
		}
		defer db.Close()
		return db.Ping()
	}), "postgres never became ready")

	return port
}

// StartRedis runs a throwaway redis container and returns its host port.
func StartRedis(t *testing.T) string {
	t.Helper()

	pool, err := dockertest.NewPool("")
	require.NoError(t, err, "could not create new dockertest pool")

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "redis",
		Tag:        "7",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	require.NoError(t, err, "run redis")
	t.Cleanup(func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("purge redis container: %s", err)
		}
	})
	_ = resource.Expire(300)

	return resource.GetPort("6379/tcp")
}
