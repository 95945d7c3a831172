package taps

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/pion/dtls/v2"
)

// SecurityParameters holds identity material and trust anchors. The core
// treats the file paths as opaque per §1; the only places it reads them
// are TLSConfig and DTLSConfig, whose results Preconnection and Listener
// hand to the stream, QUIC and DTLS adapters when a candidate protocol
// requires TLS or DTLS.
type SecurityParameters struct {
	identities []identity
	trustCAs   []string
}

type identity struct {
	certFile string
	keyFile  string
}

// NewSecurityParameters returns an empty SecurityParameters; a connection
// built from it uses the platform trust store and no client certificate.
func NewSecurityParameters() *SecurityParameters { return &SecurityParameters{} }

// AddIdentity registers a certificate/key pair the security layer may
// present during the handshake.
func (s *SecurityParameters) AddIdentity(certFile, keyFile string) *SecurityParameters {
	s.identities = append(s.identities, identity{certFile, keyFile})
	return s
}

// AddTrustCA registers an additional trust anchor (a PEM file containing
// one or more CA certificates).
func (s *SecurityParameters) AddTrustCA(caFile string) *SecurityParameters {
	s.trustCAs = append(s.trustCAs, caFile)
	return s
}

// TrustCAPaths returns the registered trust anchor paths, in the order
// they were added.
func (s *SecurityParameters) TrustCAPaths() []string {
	return append([]string(nil), s.trustCAs...)
}

// IdentityPaths returns the certificate file path half of each
// registered identity, in the order they were added.
func (s *SecurityParameters) IdentityPaths() []string {
	paths := make([]string, len(s.identities))
	for i, id := range s.identities {
		paths[i] = id.certFile
	}
	return paths
}

// TLSConfig builds a *tls.Config from the registered identities and trust
// anchors. Called by Preconnection and Listener, which pass the result to
// the stream and QUIC adapters.
func (s *SecurityParameters) TLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	for _, id := range s.identities {
		cert, err := tls.LoadX509KeyPair(id.certFile, id.keyFile)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = append(cfg.Certificates, cert)
	}

	if len(s.trustCAs) > 0 {
		pool := x509.NewCertPool()
		for _, path := range s.trustCAs {
			pem, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, &tlsTrustAnchorError{path: path}
			}
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

// DTLSConfig builds a *dtls.Config from the same identities and trust
// anchors TLSConfig uses, for candidates that select dtls-over-udp.
func (s *SecurityParameters) DTLSConfig() (*dtls.Config, error) {
	cfg := &dtls.Config{}

	for _, id := range s.identities {
		cert, err := tls.LoadX509KeyPair(id.certFile, id.keyFile)
		if err != nil {
			return nil, err
		}
		cfg.Certificates = append(cfg.Certificates, cert)
	}

	if len(s.trustCAs) > 0 {
		pool := x509.NewCertPool()
		for _, path := range s.trustCAs {
			pem, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			if !pool.AppendCertsFromPEM(pem) {
				return nil, &tlsTrustAnchorError{path: path}
			}
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}

type tlsTrustAnchorError struct{ path string }

func (e *tlsTrustAnchorError) Error() string {
	return "security: no usable certificates found in trust anchor " + e.path
}
