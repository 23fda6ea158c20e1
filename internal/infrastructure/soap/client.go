// Package soap talks to the remote store over its partner and metadata SOAP APIs.
package soap

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nexuscrm/forcemapper/internal/domain/ports"
	"github.com/nexuscrm/forcemapper/internal/domain/security"
	"github.com/nexuscrm/forcemapper/pkg/constants"
	"github.com/nexuscrm/forcemapper/pkg/errors"
	"github.com/zeebo/errs"
	"go.uber.org/zap"
)

// Error is the error class of the SOAP transport
var Error = errs.Class("soap")

// Client is an authenticated SOAP connection. It implements ports.Connection.
type Client struct {
	PartnerURL  string
	MetadataURL string
	SessionID   string
	HTTPClient  *http.Client

	logger *zap.Logger
}

// NewClient creates a client for an existing session
func NewClient(logger *zap.Logger, partnerURL, metadataURL, sessionID string) *Client {
	return &Client{
		PartnerURL:  partnerURL,
		MetadataURL: metadataURL,
		SessionID:   sessionID,
		HTTPClient:  &http.Client{Timeout: 60 * time.Second},
		logger:      logger,
	}
}

// ServiceURLs returns the partner and metadata endpoints of an instance
func ServiceURLs(instanceURL, apiVersion string) (partner, metadata string) {
	base := strings.TrimRight(instanceURL, "/")
	return base + "/services/Soap/u/" + apiVersion, base + "/services/Soap/m/" + apiVersion
}

// Login authenticates with username and password against the login endpoint
// and returns a client bound to the new session, with its security context
func Login(ctx context.Context, logger *zap.Logger, httpClient *http.Client, endpoint, apiVersion, username, password string) (*Client, *security.SecurityContext, error) {
	loginURL, _ := ServiceURLs(endpoint, apiVersion)
	anon := &Client{PartnerURL: loginURL, HTTPClient: httpClient, logger: logger}
	if anon.HTTPClient == nil {
		anon.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	}

	var resp loginResponse
	if err := anon.call(ctx, "login", loginURL, partnerNS, &loginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, nil, err
	}

	r := resp.Result
	client := &Client{
		PartnerURL:  r.ServerURL,
		MetadataURL: r.MetadataServerURL,
		SessionID:   r.SessionID,
		HTTPClient:  anon.HTTPClient,
		logger:      logger,
	}
	sc := &security.SecurityContext{
		Endpoint:  r.ServerURL,
		SessionID: r.SessionID,
		OrgID:     r.UserInfo.OrganizationID,
		UserID:    r.UserID,
		UserName:  r.UserInfo.UserName,
		Language:  r.UserInfo.UserLanguage,
	}
	logger.Info("🔐 Logged in", zap.String("user", sc.UserName), zap.String("org", sc.OrgID))
	return client, sc, nil
}

// call posts one SOAP request and decodes the response payload into result.
// Faults come back as *ports.Fault; network failures as TransportError.
func (c *Client) call(ctx context.Context, op, url, ns string, payload, result interface{}) error {
	body, err := xml.Marshal(newEnvelope(ns, c.SessionID, payload))
	if err != nil {
		return Error.New("failed to marshal %s: %v", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(append([]byte(xml.Header), body...)))
	if err != nil {
		return Error.New("failed to create %s request: %v", op, err)
	}
	req.Header.Set("Content-Type", "text/xml; charset=UTF-8")
	req.Header.Set("SOAPAction", `""`)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return errors.NewTransportError(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.NewTransportError(op, err)
	}

	var env responseEnvelope
	if err := xml.Unmarshal(data, &env); err != nil {
		if resp.StatusCode >= 400 {
			return errors.NewTransportError(op, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(string(data), 200)))
		}
		return Error.New("failed to decode %s response: %v", op, err)
	}
	if env.Body.Fault != nil {
		return env.Body.Fault.toFault()
	}
	if resp.StatusCode >= 400 {
		return errors.NewTransportError(op, fmt.Errorf("http %d", resp.StatusCode))
	}
	if result == nil {
		return nil
	}
	if err := xml.Unmarshal(env.Body.Content, result); err != nil {
		return Error.New("failed to decode %s result: %v", op, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// DescribeSObject implements ports.Connection
func (c *Client) DescribeSObject(ctx context.Context, name string) (*ports.DescribeSObjectResult, error) {
	var resp describeSObjectResponse
	if err := c.call(ctx, "describeSObject", c.PartnerURL, partnerNS, &describeSObjectRequest{SObjectType: name}, &resp); err != nil {
		return nil, err
	}
	return resp.Result.toPort(), nil
}

// DescribeSObjects implements ports.Connection
func (c *Client) DescribeSObjects(ctx context.Context, names []string) ([]*ports.DescribeSObjectResult, error) {
	if len(names) > constants.MaxDescribeBatch {
		return nil, Error.New("describeSObjects accepts at most %d names, got %d", constants.MaxDescribeBatch, len(names))
	}
	var resp describeSObjectsResponse
	if err := c.call(ctx, "describeSObjects", c.PartnerURL, partnerNS, &describeSObjectsRequest{SObjectTypes: names}, &resp); err != nil {
		return nil, err
	}
	out := make([]*ports.DescribeSObjectResult, 0, len(resp.Results))
	for i := range resp.Results {
		out = append(out, resp.Results[i].toPort())
	}
	return out, nil
}

// Deploy implements ports.Connection
func (c *Client) Deploy(ctx context.Context, zipFile []byte, opts ports.DeployOptions) (*ports.AsyncResult, error) {
	req := &deployRequest{
		ZipFile: base64.StdEncoding.EncodeToString(zipFile),
		Options: deployOptions{
			CheckOnly:       opts.CheckOnly,
			IgnoreWarnings:  opts.IgnoreWarnings,
			PurgeOnDelete:   opts.PurgeOnDelete,
			RollbackOnError: opts.RollbackOnError,
			SinglePackage:   opts.SinglePackage,
		},
	}
	var resp deployResponse
	if err := c.call(ctx, "deploy", c.MetadataURL, metadataNS, req, &resp); err != nil {
		return nil, err
	}
	c.logger.Debug("Deploy submitted", zap.String("job", resp.Result.ID), zap.Int("bytes", len(zipFile)))
	return resp.Result.toPort(), nil
}

// CheckStatus implements ports.Connection
func (c *Client) CheckStatus(ctx context.Context, ids []string) ([]*ports.AsyncResult, error) {
	var resp checkStatusResponse
	if err := c.call(ctx, "checkStatus", c.MetadataURL, metadataNS, &checkStatusRequest{IDs: ids}, &resp); err != nil {
		return nil, err
	}
	out := make([]*ports.AsyncResult, 0, len(resp.Results))
	for i := range resp.Results {
		out = append(out, resp.Results[i].toPort())
	}
	return out, nil
}

// CheckDeployStatus implements ports.Connection
func (c *Client) CheckDeployStatus(ctx context.Context, id string) (*ports.DeployResult, error) {
	var resp checkDeployStatusResponse
	req := &checkDeployStatusRequest{ID: id, IncludeDetails: true}
	if err := c.call(ctx, "checkDeployStatus", c.MetadataURL, metadataNS, req, &resp); err != nil {
		return nil, err
	}
	r := resp.Result
	out := &ports.DeployResult{
		ID:           r.ID,
		Done:         r.Done,
		Success:      r.Success,
		Status:       r.Status,
		ErrorMessage: r.ErrorMessage,
	}
	for _, m := range r.Details.Failures {
		out.Messages = append(out.Messages, m.toPort())
	}
	for _, m := range r.Details.Successes {
		out.Messages = append(out.Messages, m.toPort())
	}
	return out, nil
}
