package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/tidwall/gjson"
)

// Database holds the connection parameters of the relational store.
type Database struct {
	Driver          string        `mapstructure:"driver"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"sslmode"`
	SecretFile      string        `mapstructure:"secret_file"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	ConnectRetries  int           `mapstructure:"connect_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

// loadSecret fills the credentials from a secret document shaped like the
// one the provisioning stack stores: {host, port, username, password, dbname}.
// Fields present in the document win over configured ones.
func (d *Database) loadSecret(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read database secret: %w", err)
	}
	if !gjson.ValidBytes(raw) {
		return fmt.Errorf("database secret %s is not valid JSON", path)
	}
	fields := gjson.GetManyBytes(raw, "host", "port", "username", "password", "dbname")
	if v := fields[0].String(); v != "" {
		d.Host = v
	}
	if fields[1].Exists() && fields[1].Int() > 0 {
		d.Port = int(fields[1].Int())
	}
	if v := fields[2].String(); v != "" {
		d.User = v
	}
	if v := fields[3].String(); v != "" {
		d.Password = v
	}
	if v := fields[4].String(); v != "" {
		d.Name = v
	}
	return nil
}

// DSN returns the driver specific connection string. For sqlite3, Name is the
// database file path.
func (d Database) DSN() (string, error) {
	if d.Name == "" {
		return "", fmt.Errorf("database name is required")
	}
	switch d.Driver {
	case "postgres":
		if d.Host == "" {
			return "", fmt.Errorf("database host is required")
		}
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(d.User, d.Password),
			Host:   net.JoinHostPort(d.Host, strconv.Itoa(d.port())),
			Path:   "/" + d.Name,
		}
		q := url.Values{}
		if d.SSLMode != "" {
			q.Set("sslmode", d.SSLMode)
		}
		if d.ConnectTimeout > 0 {
			q.Set("connect_timeout", strconv.Itoa(int(d.ConnectTimeout.Seconds())))
		}
		u.RawQuery = q.Encode()
		return u.String(), nil
	case "mysql":
		if d.Host == "" {
			return "", fmt.Errorf("database host is required")
		}
		mc := mysql.NewConfig()
		mc.User = d.User
		mc.Passwd = d.Password
		mc.Net = "tcp"
		mc.Addr = net.JoinHostPort(d.Host, strconv.Itoa(d.port()))
		mc.DBName = d.Name
		mc.ParseTime = true
		mc.MultiStatements = true
		mc.Timeout = d.ConnectTimeout
		return mc.FormatDSN(), nil
	case "sqlite3":
		return fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=5000&_foreign_keys=1", d.Name), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", d.Driver)
	}
}

func (d Database) port() int {
	if d.Port > 0 {
		return d.Port
	}
	if d.Driver == "mysql" {
		return 3306
	}
	return 5432
}
