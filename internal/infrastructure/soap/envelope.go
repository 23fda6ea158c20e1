package soap

import (
	"encoding/xml"
	"strings"

	"github.com/nexuscrm/forcemapper/internal/domain/ports"
)

const (
	envelopeNS = "http://schemas.xmlsoap.org/soap/envelope/"
	partnerNS  = "urn:partner.soap.sforce.com"
	metadataNS = "http://soap.sforce.com/2006/04/metadata"
)

type requestEnvelope struct {
	XMLName xml.Name       `xml:"soapenv:Envelope"`
	SoapNS  string         `xml:"xmlns:soapenv,attr"`
	Header  *requestHeader `xml:"soapenv:Header,omitempty"`
	Body    requestBody    `xml:"soapenv:Body"`
}

type requestHeader struct {
	Session *sessionHeader
}

type sessionHeader struct {
	XMLName   xml.Name
	SessionID string `xml:"sessionId"`
}

type requestBody struct {
	Payload interface{}
}

func newEnvelope(ns, sessionID string, payload interface{}) *requestEnvelope {
	env := &requestEnvelope{SoapNS: envelopeNS, Body: requestBody{Payload: payload}}
	if sessionID != "" {
		env.Header = &requestHeader{Session: &sessionHeader{
			XMLName:   xml.Name{Space: ns, Local: "SessionHeader"},
			SessionID: sessionID,
		}}
	}
	return env
}

type responseEnvelope struct {
	XMLName xml.Name `xml:"Envelope"`
	Body    struct {
		Fault   *fault `xml:"Fault"`
		Content []byte `xml:",innerxml"`
	} `xml:"Body"`
}

type fault struct {
	Code   string `xml:"faultcode"`
	String string `xml:"faultstring"`
	Detail struct {
		Inner struct {
			ExceptionCode    string `xml:"exceptionCode"`
			ExceptionMessage string `xml:"exceptionMessage"`
		} `xml:",any"`
	} `xml:"detail"`
}

// toFault turns a SOAP fault into a remote store fault, e.g. "sf:INVALID_TYPE"
// becomes code INVALID_TYPE
func (f *fault) toFault() *ports.Fault {
	code := f.Detail.Inner.ExceptionCode
	if code == "" {
		code = f.Code
		if i := strings.LastIndexByte(code, ':'); i >= 0 {
			code = code[i+1:]
		}
	}
	msg := f.Detail.Inner.ExceptionMessage
	if msg == "" {
		msg = strings.TrimPrefix(f.String, code+": ")
	}
	return &ports.Fault{Code: code, Message: msg}
}

// Partner API

type loginRequest struct {
	XMLName  xml.Name `xml:"urn:partner.soap.sforce.com login"`
	Username string   `xml:"username"`
	Password string   `xml:"password"`
}

type loginResponse struct {
	Result struct {
		MetadataServerURL string `xml:"metadataServerUrl"`
		ServerURL         string `xml:"serverUrl"`
		SessionID         string `xml:"sessionId"`
		UserID            string `xml:"userId"`
		UserInfo          struct {
			OrganizationID string `xml:"organizationId"`
			UserName       string `xml:"userName"`
			UserLanguage   string `xml:"userLanguage"`
		} `xml:"userInfo"`
	} `xml:"result"`
}

type describeSObjectRequest struct {
	XMLName     xml.Name `xml:"urn:partner.soap.sforce.com describeSObject"`
	SObjectType string   `xml:"sObjectType"`
}

type describeSObjectsRequest struct {
	XMLName      xml.Name `xml:"urn:partner.soap.sforce.com describeSObjects"`
	SObjectTypes []string `xml:"sObjectType"`
}

type describeResult struct {
	Name   string `xml:"name"`
	Label  string `xml:"label"`
	Custom bool   `xml:"custom"`
	Fields []struct {
		Name             string   `xml:"name"`
		Label            string   `xml:"label"`
		Type             string   `xml:"type"`
		Custom           bool     `xml:"custom"`
		ExternalID       bool     `xml:"externalId"`
		Nillable         bool     `xml:"nillable"`
		Unique           bool     `xml:"unique"`
		Length           int      `xml:"length"`
		Precision        int      `xml:"precision"`
		Scale            int      `xml:"scale"`
		ReferenceTo      []string `xml:"referenceTo"`
		RelationshipName string   `xml:"relationshipName"`
		PicklistValues   []struct {
			Value string `xml:"value"`
		} `xml:"picklistValues"`
	} `xml:"fields"`
	ChildRelationships []struct {
		ChildSObject     string `xml:"childSObject"`
		Field            string `xml:"field"`
		RelationshipName string `xml:"relationshipName"`
		CascadeDelete    bool   `xml:"cascadeDelete"`
	} `xml:"childRelationships"`
}

func (r *describeResult) toPort() *ports.DescribeSObjectResult {
	out := &ports.DescribeSObjectResult{Name: r.Name, Label: r.Label, Custom: r.Custom}
	for _, f := range r.Fields {
		df := ports.DescribeField{
			Name:             f.Name,
			Label:            f.Label,
			Type:             f.Type,
			Custom:           f.Custom,
			ExternalID:       f.ExternalID,
			Nillable:         f.Nillable,
			Unique:           f.Unique,
			Length:           f.Length,
			Precision:        f.Precision,
			Scale:            f.Scale,
			ReferenceTo:      f.ReferenceTo,
			RelationshipName: f.RelationshipName,
		}
		for _, v := range f.PicklistValues {
			df.PicklistValues = append(df.PicklistValues, v.Value)
		}
		out.Fields = append(out.Fields, df)
	}
	for _, cr := range r.ChildRelationships {
		out.ChildRelationships = append(out.ChildRelationships, ports.ChildRelationship{
			ChildSObject:     cr.ChildSObject,
			Field:            cr.Field,
			RelationshipName: cr.RelationshipName,
			CascadeDelete:    cr.CascadeDelete,
		})
	}
	return out
}

type describeSObjectResponse struct {
	Result describeResult `xml:"result"`
}

type describeSObjectsResponse struct {
	Results []describeResult `xml:"result"`
}

// Metadata API

type deployRequest struct {
	XMLName xml.Name      `xml:"http://soap.sforce.com/2006/04/metadata deploy"`
	ZipFile string        `xml:"ZipFile"`
	Options deployOptions `xml:"DeployOptions"`
}

type deployOptions struct {
	CheckOnly       bool `xml:"checkOnly"`
	IgnoreWarnings  bool `xml:"ignoreWarnings"`
	PurgeOnDelete   bool `xml:"purgeOnDelete"`
	RollbackOnError bool `xml:"rollbackOnError"`
	SinglePackage   bool `xml:"singlePackage"`
}

type asyncResult struct {
	ID         string `xml:"id"`
	Done       bool   `xml:"done"`
	State      string `xml:"state"`
	StatusCode string `xml:"statusCode"`
	Message    string `xml:"message"`
}

func (r *asyncResult) toPort() *ports.AsyncResult {
	return &ports.AsyncResult{ID: r.ID, Done: r.Done, State: r.State, StatusCode: r.StatusCode, Message: r.Message}
}

type deployResponse struct {
	Result asyncResult `xml:"result"`
}

type checkStatusRequest struct {
	XMLName xml.Name `xml:"http://soap.sforce.com/2006/04/metadata checkStatus"`
	IDs     []string `xml:"asyncProcessId"`
}

type checkStatusResponse struct {
	Results []asyncResult `xml:"result"`
}

type checkDeployStatusRequest struct {
	XMLName        xml.Name `xml:"http://soap.sforce.com/2006/04/metadata checkDeployStatus"`
	ID             string   `xml:"asyncProcessId"`
	IncludeDetails bool     `xml:"includeDetails"`
}

type componentMessage struct {
	FileName      string `xml:"fileName"`
	FullName      string `xml:"fullName"`
	ComponentType string `xml:"componentType"`
	Problem       string `xml:"problem"`
	Success       bool   `xml:"success"`
	Created       bool   `xml:"created"`
	Deleted       bool   `xml:"deleted"`
}

func (m componentMessage) toPort() ports.DeployMessage {
	return ports.DeployMessage{
		FileName:      m.FileName,
		FullName:      m.FullName,
		ComponentType: m.ComponentType,
		Problem:       m.Problem,
		Success:       m.Success,
		Created:       m.Created,
		Deleted:       m.Deleted,
	}
}

type checkDeployStatusResponse struct {
	Result struct {
		ID           string `xml:"id"`
		Done         bool   `xml:"done"`
		Success      bool   `xml:"success"`
		Status       string `xml:"status"`
		ErrorMessage string `xml:"errorMessage"`
		Details      struct {
			Failures  []componentMessage `xml:"componentFailures"`
			Successes []componentMessage `xml:"componentSuccesses"`
		} `xml:"details"`
	} `xml:"result"`
}
