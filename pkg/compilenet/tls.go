// Package compilenet is the QUIC transport for the network compile
// service: a self-signed TLS identity, a length-prefixed request/response
// framing, the server built on top of them, and a client TLS config.
// Grounded on the teacher's pkg/net (certs.go's self-signed ed25519
// certificate, message.go's length-prefixed framing, node.go's
// quic.Listen/Accept loop), simplified for a service with no
// peer-identity protocol to enforce: the server requests no client
// certificate, so any client may submit work.
package compilenet

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"
)

// ALPNProto is the next-protocol identifier this service negotiates.
const ALPNProto = "ghuloum-compile/1"

// generateSelfSignedCert creates an ephemeral ed25519 TLS identity for
// one process lifetime, the way the teacher's generateCertificate does,
// minus the JAMNP-S alternative-name/DNS-name verification ceremony:
// this service has no peer-identity protocol to enforce.
func generateSelfSignedCert() (tls.Certificate, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("compilenet: generating key: %w", err)
	}

	serialLimit := new(big.Int).Lsh(big.NewInt(1), 128)
	serial, err := rand.Int(rand.Reader, serialLimit)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("compilenet: generating serial: %w", err)
	}

	template := x509.Certificate{
		SerialNumber:          serial,
		Subject:               pkix.Name{CommonName: "ghuloum-compileserver"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().AddDate(1, 0, 0),
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		BasicConstraintsValid: true,
	}

	certBytes, err := x509.CreateCertificate(rand.Reader, &template, &template, pub, priv)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("compilenet: creating certificate: %w", err)
	}

	return tls.Certificate{Certificate: [][]byte{certBytes}, PrivateKey: priv}, nil
}

// ServerTLSConfig returns a TLS config backed by a freshly generated
// self-signed identity, ready to hand to quic.Listen.
func ServerTLSConfig() (*tls.Config, error) {
	cert, err := generateSelfSignedCert()
	if err != nil {
		return nil, err
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
		NextProtos:   []string{ALPNProto},
	}, nil
}

// ClientTLSConfig returns a TLS config suitable for dialing a server
// using ServerTLSConfig: certificate pinning is out of scope for this
// service, so verification of the self-signed server certificate is
// skipped the way a loopback/dev tool would.
func ClientTLSConfig() *tls.Config {
	return &tls.Config{
		InsecureSkipVerify: true,
		NextProtos:         []string{ALPNProto},
		MinVersion:         tls.VersionTLS13,
	}
}
