package plex

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"plexctl/internal/logging"
)

// DefaultAccountURL is the identity service that lists an account's devices.
const DefaultAccountURL = "https://plex.tv"

const (
	resourcesPath        = "/api/v2/resources"
	identityPath         = "/identity"
	connectProbeTimeout  = 15 * time.Second
	providesServerMarker = "server"
	providesPlayerMarker = "player"
)

// Device is a server or player registered on the account.
type Device struct {
	Name             string
	ClientIdentifier string
	AccessToken      string
	Product          string
	Platform         string
	Provides         string
	Owned            bool
	Connections      []Connection
}

// IsServer reports whether the device provides a media server.
func (d Device) IsServer() bool { return providesRole(d.Provides, providesServerMarker) }

// IsPlayer reports whether the device can be remote controlled.
func (d Device) IsPlayer() bool { return providesRole(d.Provides, providesPlayerMarker) }

// Connection is one address a device can be reached at.
type Connection struct {
	URI      string
	Protocol string
	Address  string
	Port     int
	Local    bool
	Relay    bool
}

type resourceList struct {
	Resources []resource `xml:"resource"`
}

type resource struct {
	Name             string               `xml:"name,attr"`
	AccessToken      string               `xml:"accessToken,attr"`
	ClientIdentifier string               `xml:"clientIdentifier,attr"`
	Product          string               `xml:"product,attr"`
	Platform         string               `xml:"platform,attr"`
	Provides         string               `xml:"provides,attr"`
	Owned            string               `xml:"owned,attr"`
	Connections      []resourceConnection `xml:"connections>connection"`
}

type resourceConnection struct {
	URI      string `xml:"uri,attr"`
	Protocol string `xml:"protocol,attr"`
	Address  string `xml:"address,attr"`
	Port     string `xml:"port,attr"`
	Local    string `xml:"local,attr"`
	Relay    string `xml:"relay,attr"`
}

// Resources lists the devices registered on the account. The client must
// point at the identity service (DefaultAccountURL).
func (c *Client) Resources(ctx context.Context) ([]Device, error) {
	query := NewQuery().SetBool("includeHttps", true).SetBool("includeRelay", true)
	resp, err := c.Get(ctx, resourcesPath, query, Route("resources"), Accept("application/xml"))
	if err != nil {
		return nil, err
	}
	body, err := ReadBody(resp)
	op := "GET " + resourcesPath
	if err != nil {
		return nil, &Error{Kind: ErrTransport, Op: op, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, NewUnexpectedResponse(op, resp.StatusCode, body)
	}

	var list resourceList
	if err := xml.Unmarshal(body, &list); err != nil {
		return nil, &Error{Kind: ErrDeserialization, Op: op, Err: err}
	}

	devices := make([]Device, 0, len(list.Resources))
	for _, res := range list.Resources {
		device := Device{
			Name:             strings.TrimSpace(res.Name),
			ClientIdentifier: strings.TrimSpace(res.ClientIdentifier),
			AccessToken:      strings.TrimSpace(res.AccessToken),
			Product:          res.Product,
			Platform:         res.Platform,
			Provides:         res.Provides,
			Owned:            parseBool(res.Owned),
		}
		for _, conn := range res.Connections {
			uri := strings.TrimRight(strings.TrimSpace(conn.URI), "/")
			if uri == "" {
				continue
			}
			port, _ := strconv.Atoi(strings.TrimSpace(conn.Port))
			device.Connections = append(device.Connections, Connection{
				URI:      uri,
				Protocol: strings.ToLower(strings.TrimSpace(conn.Protocol)),
				Address:  conn.Address,
				Port:     port,
				Local:    parseBool(conn.Local),
				Relay:    parseBool(conn.Relay),
			})
		}
		devices = append(devices, device)
	}
	return devices, nil
}

// Connect races every candidate connection of device and returns a client
// bound to the first one that answers. Losing probes are cancelled and
// joined before Connect returns.
func (c *Client) Connect(ctx context.Context, device Device) (*Client, error) {
	candidates := RankConnections(device.Connections)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("device %q has no connections", device.Name)
	}
	token := device.AccessToken
	if token == "" {
		token = c.token
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	winner := make(chan *Client, 1)
	failures := make([]error, len(candidates))
	var group errgroup.Group
	for i, conn := range candidates {
		group.Go(func() error {
			client, err := c.probe(raceCtx, conn, token, device.ClientIdentifier)
			if err != nil {
				failures[i] = fmt.Errorf("%s: %w", conn.URI, err)
				return nil
			}
			select {
			case winner <- client:
				cancel()
			default:
			}
			return nil
		})
	}
	_ = group.Wait()

	select {
	case client := <-winner:
		c.logger.Info("connected to device",
			logging.String("device", device.Name),
			logging.String("uri", client.BaseURL()),
		)
		return client, nil
	default:
	}
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: ErrTransport, Op: "connect " + device.Name, Err: err}
	}
	return nil, &Error{Kind: ErrTransport, Op: "connect " + device.Name, Err: errors.Join(failures...)}
}

func (c *Client) probe(ctx context.Context, conn Connection, token, machineID string) (*Client, error) {
	candidate, err := c.WithBaseURL(conn.URI)
	if err != nil {
		return nil, err
	}
	candidate = candidate.WithAccessToken(token)
	container, err := candidate.GetContainer(ctx, identityPath, NewQuery(), Route("identity"), RequestTimeout(connectProbeTimeout))
	if err != nil {
		return nil, err
	}
	if machineID != "" && container.MachineIdentifier != "" && container.MachineIdentifier != machineID {
		return nil, fmt.Errorf("answered as %s, expected %s", container.MachineIdentifier, machineID)
	}
	return candidate, nil
}

// RankConnections orders connections best first: https, then plex.direct
// hosts, then local, with relays last. Ties keep their original order.
func RankConnections(connections []Connection) []Connection {
	ranked := make([]Connection, 0, len(connections))
	for _, conn := range connections {
		if strings.TrimSpace(conn.URI) != "" {
			ranked = append(ranked, conn)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return connectionScore(ranked[i]) > connectionScore(ranked[j])
	})
	return ranked
}

func connectionScore(conn Connection) int {
	score := 0
	switch conn.Protocol {
	case "https":
		score += 50
	case "":
	default:
		score -= 10
	}
	if strings.Contains(conn.URI, ".plex.direct") {
		score += 30
	}
	if conn.Local {
		score += 5
	}
	if conn.Relay {
		score -= 5
	}
	return score
}

func providesRole(provides, role string) bool {
	for _, part := range strings.Split(provides, ",") {
		if strings.EqualFold(strings.TrimSpace(part), role) {
			return true
		}
	}
	return false
}

func parseBool(value string) bool {
	if value == "" {
		return false
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false
	}
	return b
}
