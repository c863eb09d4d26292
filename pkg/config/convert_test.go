package config

import (
	"testing"

	"github.com/getmockd/mockman/pkg/mockinstance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToSpecsConvertsStaticExpectation(t *testing.T) {
	doc := &Document{Servers: []ServerDocument{
		{
			Server: ServerBlock{
				ServerID:      "svc-a",
				Port:          8080,
				GlobalHeaders: []GlobalHeaderDoc{{Name: "X-Env", Value: "test"}},
			},
			Expectations: []ExpectationDoc{
				{
					Match: MatchDoc{Method: "GET", Path: "/users/{id}"},
					Response: ResponseDoc{
						Kind:   "static",
						Static: &StaticResponseDoc{StatusCode: 200, Body: "ok"},
					},
				},
			},
		},
	}}

	specs, err := doc.ToSpecs()
	require.NoError(t, err)
	require.Len(t, specs, 1)

	spec := specs[0]
	assert.Equal(t, "svc-a", spec.ID)
	assert.Equal(t, 8080, spec.Port)
	require.Len(t, spec.GlobalHeaders, 1)
	assert.Equal(t, "X-Env", spec.GlobalHeaders[0].Name)
	require.Len(t, spec.Expectations, 1)
	assert.Equal(t, mockinstance.KindStatic, spec.Expectations[0].Response.Kind)
	assert.Equal(t, "/users/{id}", spec.Expectations[0].Match.Path)
}

func TestToSpecsConvertsTLSAndMTLS(t *testing.T) {
	requireAuth := true
	doc := &Document{Servers: []ServerDocument{
		{
			Server: ServerBlock{
				ServerID: "svc-tls",
				TLSConfig: &TLSConfigDoc{
					Certificate: "cert-pem",
					PrivateKey:  "key-pem",
					MTLSConfig:  &MTLSConfig{CACertificate: "ca-pem", RequireClientAuth: &requireAuth},
				},
			},
		},
	}}

	specs, err := doc.ToSpecs()
	require.NoError(t, err)
	spec := specs[0]
	assert.True(t, spec.TLS.Enabled)
	assert.Equal(t, "cert-pem", string(spec.TLS.CertPEM))
	assert.Equal(t, "ca-pem", string(spec.TLS.CAPEM))
	assert.True(t, spec.TLS.RequireClientAuth)
}

func TestToSpecsConvertsRelayConfig(t *testing.T) {
	doc := &Document{Servers: []ServerDocument{
		{
			Server: ServerBlock{
				ServerID: "svc-relay",
				RelayConfig: &RelayConfigDoc{
					RemoteURL: "https://upstream.example.com",
					TokenURL:  "https://auth.example.com/token",
					ClientID:  "client",
				},
			},
		},
	}}

	specs, err := doc.ToSpecs()
	require.NoError(t, err)
	require.NotNil(t, specs[0].Relay)
	assert.Equal(t, "https://upstream.example.com", specs[0].Relay.RemoteURL)
	assert.Equal(t, "client", specs[0].Relay.ClientID)
}

func TestToSpecsRejectsResponseKindMissingBlock(t *testing.T) {
	doc := &Document{Servers: []ServerDocument{
		{
			Server: ServerBlock{ServerID: "svc-a"},
			Expectations: []ExpectationDoc{
				{Match: MatchDoc{Path: "/x"}, Response: ResponseDoc{Kind: "static"}},
			},
		},
	}}

	_, err := doc.ToSpecs()
	assert.Error(t, err)
}
