package mongodb

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo/options"
)

// ClientConfig describes one logical MongoDB client. Either URI or Hosts must be set.
type ClientConfig struct {
	URI   string
	Hosts []string
	// Credentials uses the form "[mechanism/]source:user:password".
	Credentials            string
	AppName                string
	ReplicaSet             string
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	MaxPoolSize            uint64
	// Databases maps database names to their alias. An empty alias defaults to the name.
	Databases map[string]string
}

// Supported authentication mechanisms.
const (
	MechanismPlain       = "PLAIN"
	MechanismScramSHA1   = "SCRAM-SHA-1"
	MechanismScramSHA256 = "SCRAM-SHA-256"
	MechanismAWS         = "MONGODB-AWS"
	MechanismX509        = "MONGODB-X509"
	MechanismGSSAPI      = "GSSAPI"
)

const defaultPort = 27017

// ClientOptions builds the driver options for cfg.
func ClientOptions(name string, cfg ClientConfig) (*options.ClientOptions, error) {
	opts := options.Client()
	if cfg.URI != "" {
		opts.ApplyURI(cfg.URI)
	} else {
		hosts, err := ParseHosts(name, cfg.Hosts)
		if err != nil {
			return nil, err
		}
		if len(hosts) == 0 {
			return nil, fmt.Errorf("%w: client %s has neither uri nor hosts", ErrInvalidConfig, name)
		}
		opts.SetHosts(hosts)
	}

	cred, err := ParseCredential(name, cfg.Credentials)
	if err != nil {
		return nil, err
	}
	if cred != nil {
		opts.SetAuth(*cred)
	}
	if cfg.AppName != "" {
		opts.SetAppName(cfg.AppName)
	}
	if cfg.ReplicaSet != "" {
		opts.SetReplicaSet(cfg.ReplicaSet)
	}
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	if cfg.ServerSelectionTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ServerSelectionTimeout)
	}
	if cfg.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(cfg.MaxPoolSize)
	}
	return opts, opts.Validate()
}

// ParseHosts normalizes "host[:port]" entries into "host:port".
func ParseHosts(name string, addresses []string) ([]string, error) {
	hosts := make([]string, 0, len(addresses))
	for _, address := range addresses {
		address = strings.TrimSpace(address)
		if address == "" {
			continue
		}
		host, port, found := strings.Cut(address, ":")
		if !found {
			hosts = append(hosts, net.JoinHostPort(host, strconv.Itoa(defaultPort)))
			continue
		}
		p, err := strconv.Atoi(port)
		if host == "" || err != nil || p <= 0 || p > 65535 {
			return nil, fmt.Errorf("%w: client %s has invalid server address %q", ErrInvalidConfig, name, address)
		}
		hosts = append(hosts, net.JoinHostPort(host, port))
	}
	return hosts, nil
}

// ParseCredential parses "[mechanism/]source:user:password". An empty string means no
// authentication.
func ParseCredential(name, credential string) (*options.Credential, error) {
	if credential == "" {
		return nil, nil
	}
	elements := strings.SplitN(credential, ":", 3)
	if len(elements) != 3 {
		return nil, fmt.Errorf("%w: client %s credential must be [mechanism/]source:user:password",
			ErrInvalidConfig, name)
	}
	mechanism, source, hasMechanism := strings.Cut(elements[0], "/")
	if !hasMechanism {
		source, mechanism = mechanism, ""
	}
	user, password := elements[1], elements[2]

	cred := &options.Credential{Username: user, AuthSource: source}
	switch strings.ToUpper(mechanism) {
	case "":
		cred.Password = password
	case MechanismPlain, MechanismScramSHA1, MechanismScramSHA256:
		cred.AuthMechanism = strings.ToUpper(mechanism)
		cred.Password = password
	case MechanismAWS:
		cred.AuthMechanism = MechanismAWS
		cred.AuthSource = "$external"
		cred.Password = password
	case MechanismX509, MechanismGSSAPI:
		cred.AuthMechanism = strings.ToUpper(mechanism)
		cred.AuthSource = "$external"
	default:
		return nil, fmt.Errorf("%w: client %s uses unsupported authentication mechanism %q",
			ErrInvalidConfig, name, mechanism)
	}
	return cred, nil
}
