package storage

import (
	"encoding/json"

	"github.com/kmransom56/FortiGate-Enterprise-Platform/internal/core/domain"
)

func toDeviceModel(d domain.Device) (DeviceModel, error) {
	m := DeviceModel{
		ID:                  d.ID,
		Hostname:            d.Hostname,
		DeviceName:          d.DeviceName,
		Type:                string(d.Type),
		Status:              string(d.Status),
		PrimaryIP:           d.PrimaryIP,
		PrimaryMAC:          d.PrimaryMAC,
		Manufacturer:        d.Manufacturer,
		Model:               d.Model,
		SecurityScore:       d.SecurityScore,
		LastSecurityScan:    d.LastSecurityScan,
		FirstSeen:           d.FirstSeen,
		LastSeen:            d.LastSeen,
		LastUpdated:         d.LastUpdated,
		ScanCount:           d.ScanCount,
		Notes:               d.Notes,
		AutomationTriggered: d.AutomationTriggered,
	}

	enc := jsonEncoder{}
	m.InterfacesJSON = enc.encode(d.Interfaces)
	m.OpenPortsJSON = enc.encode(d.OpenPorts)
	m.ServicesJSON = enc.encode(d.Services)
	m.ProtocolsJSON = enc.encode(d.Protocols)
	m.VulnerabilitiesJSON = enc.encode(d.Vulnerabilities)
	m.TagsJSON = enc.encode(d.Tags)
	m.AutomationActionsJSON = enc.encode(d.AutomationActions)
	if len(d.CustomFields) > 0 {
		m.CustomFieldsJSON = enc.encode(d.CustomFields)
	}
	if d.OperatingSystem != nil {
		m.OSJSON = enc.encode(d.OperatingSystem)
	}
	return m, enc.err
}

func toDeviceDomain(m DeviceModel) (domain.Device, error) {
	d := domain.Device{
		ID:                  m.ID,
		Hostname:            m.Hostname,
		DeviceName:          m.DeviceName,
		Type:                domain.DeviceType(m.Type),
		Status:              domain.DeviceStatus(m.Status),
		PrimaryIP:           m.PrimaryIP,
		PrimaryMAC:          m.PrimaryMAC,
		Manufacturer:        m.Manufacturer,
		Model:               m.Model,
		SecurityScore:       m.SecurityScore,
		LastSecurityScan:    m.LastSecurityScan,
		FirstSeen:           m.FirstSeen,
		LastSeen:            m.LastSeen,
		LastUpdated:         m.LastUpdated,
		ScanCount:           m.ScanCount,
		Notes:               m.Notes,
		AutomationTriggered: m.AutomationTriggered,
	}

	dec := jsonDecoder{}
	dec.decode(m.InterfacesJSON, &d.Interfaces)
	dec.decode(m.OpenPortsJSON, &d.OpenPorts)
	dec.decode(m.ServicesJSON, &d.Services)
	dec.decode(m.ProtocolsJSON, &d.Protocols)
	dec.decode(m.VulnerabilitiesJSON, &d.Vulnerabilities)
	dec.decode(m.TagsJSON, &d.Tags)
	dec.decode(m.AutomationActionsJSON, &d.AutomationActions)
	dec.decode(m.CustomFieldsJSON, &d.CustomFields)
	if m.OSJSON != "" {
		d.OperatingSystem = &domain.OperatingSystem{}
		dec.decode(m.OSJSON, d.OperatingSystem)
	}
	if dec.err != nil {
		return domain.Device{}, dec.err
	}

	// Collections are never nil on a loaded device.
	if d.Interfaces == nil {
		d.Interfaces = []domain.NetworkInterface{}
	}
	if d.OpenPorts == nil {
		d.OpenPorts = []int{}
	}
	if d.Services == nil {
		d.Services = []string{}
	}
	if d.Protocols == nil {
		d.Protocols = []string{}
	}
	if d.Vulnerabilities == nil {
		d.Vulnerabilities = []domain.Vulnerability{}
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	if d.AutomationActions == nil {
		d.AutomationActions = []string{}
	}
	return d, nil
}

func toScanModel(s domain.Scan) (ScanModel, error) {
	m := ScanModel{
		ID:                   s.ID,
		Target:               s.Target,
		Type:                 string(s.Type),
		Timeout:              s.Timeout,
		Aggressive:           s.Aggressive,
		State:                string(s.State),
		StartedAt:            s.StartedAt,
		CompletedAt:          s.CompletedAt,
		Error:                s.Error,
		DevicesFound:         s.DevicesFound,
		VulnerabilitiesFound: s.VulnerabilitiesFound,
	}

	enc := jsonEncoder{}
	if len(s.Ports) > 0 {
		m.PortsJSON = enc.encode(s.Ports)
	}
	if s.Results != nil {
		m.ResultsJSON = enc.encode(s.Results)
	}
	return m, enc.err
}

func toScanDomain(m ScanModel) (domain.Scan, error) {
	s := domain.Scan{
		ID:                   m.ID,
		Target:               m.Target,
		Type:                 domain.ScanType(m.Type),
		Timeout:              m.Timeout,
		Aggressive:           m.Aggressive,
		State:                domain.ScanState(m.State),
		StartedAt:            m.StartedAt,
		CompletedAt:          m.CompletedAt,
		Error:                m.Error,
		DevicesFound:         m.DevicesFound,
		VulnerabilitiesFound: m.VulnerabilitiesFound,
	}

	dec := jsonDecoder{}
	dec.decode(m.PortsJSON, &s.Ports)
	if m.ResultsJSON != "" {
		s.Results = &domain.ScanResults{}
		dec.decode(m.ResultsJSON, s.Results)
	}
	if dec.err != nil {
		return domain.Scan{}, dec.err
	}
	return s, nil
}

// jsonEncoder keeps the first marshal error so callers can encode a run of
// columns and check once.
type jsonEncoder struct {
	err error
}

func (e *jsonEncoder) encode(v any) string {
	if e.err != nil {
		return ""
	}
	b, err := json.Marshal(v)
	if err != nil {
		e.err = err
		return ""
	}
	return string(b)
}

type jsonDecoder struct {
	err error
}

func (d *jsonDecoder) decode(raw string, v any) {
	if d.err != nil || raw == "" {
		return
	}
	d.err = json.Unmarshal([]byte(raw), v)
}
