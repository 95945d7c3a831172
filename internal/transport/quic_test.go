package transport

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"testing"
	"time"
)

// selfSignedTLSConfig builds a throwaway server certificate for local QUIC
// handshakes; quic-go refuses to listen without one.
func selfSignedTLSConfig(t *testing.T) *tls.Config {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey failed: %v", err)
	}
	template := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "taps-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		IsCA:         true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("CreateCertificate failed: %v", err)
	}
	cert := tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{"taps"},
	}
}

func TestQUICDialAndListen_StreamRoundTrip(t *testing.T) {
	serverConf := selfSignedTLSConfig(t)
	ln, err := ListenQUIC(&net.UDPAddr{IP: net.ParseIP("127.0.0.1")}, serverConf)
	if err != nil {
		t.Fatalf("ListenQUIC failed: %v", err)
	}
	defer ln.Close()

	accepted := make(chan Adapter, 1)
	go func() {
		adapter, err := ln.Accept(context.Background())
		if err != nil {
			return
		}
		accepted <- adapter
	}()

	clientConf := &tls.Config{InsecureSkipVerify: true, NextProtos: []string{"taps"}}
	dialer := &QUICDialer{TLSConfig: clientConf}
	clientAdapter, err := dialer.Dial(context.Background(), nil, ln.LocalAddr())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer clientAdapter.Close()

	if clientAdapter.Protocol() != "quic" {
		t.Errorf("Protocol() = %s, want quic", clientAdapter.Protocol())
	}

	var serverAdapter Adapter
	select {
	case serverAdapter = <-accepted:
	case <-time.After(3 * time.Second):
		t.Fatal("server never accepted the QUIC connection")
	}
	defer serverAdapter.Close()

	serverSink := newCaptureSink()
	go serverAdapter.(*QUICAdapter).ReadLoop(serverSink)

	if err := clientAdapter.Write(context.Background(), []byte("hello-quic")); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	serverSink.waitForBytes(t, "hello-quic")
}
