package device

import "github.com/voltbench/voltbench/pkg/voltbench/hwdriver"

var metaBoolKeys = map[hwdriver.ConfigKey]ChangeKind{
	hwdriver.KeyEnabled:    ChangeEnabled,
	hwdriver.KeyOTPEnabled: ChangeOTPEnabled,
	hwdriver.KeyOTPActive:  ChangeOTPActive,
	hwdriver.KeyOVPEnabled: ChangeOVPEnabled,
	hwdriver.KeyOVPActive:  ChangeOVPActive,
	hwdriver.KeyOCPEnabled: ChangeOCPEnabled,
	hwdriver.KeyOCPActive:  ChangeOCPActive,
	hwdriver.KeyUVCEnabled: ChangeUVCEnabled,
	hwdriver.KeyUVCActive:  ChangeUVCActive,
}

var metaNumericKeys = map[hwdriver.ConfigKey]ChangeKind{
	hwdriver.KeyVoltageTarget: ChangeVoltageTarget,
	hwdriver.KeyCurrentLimit:  ChangeCurrentLimit,
	hwdriver.KeyOVPThreshold:  ChangeOVPThreshold,
	hwdriver.KeyOCPThreshold:  ChangeOCPThreshold,
}

// feedInMeta routes recognized metadata keys to typed change notifications.
// The packet does not say which channel group it belongs to, so everything
// is attributed to the first configurable; per-group protection settings on
// multi-group devices are not disambiguated.
func (d *Hardware) feedInMeta(p *hwdriver.MetaPacket) {
	if len(d.configurables) == 0 {
		return
	}
	configurable := d.configurables[0]

	for _, entry := range p.Config {
		if kind, ok := metaBoolKeys[entry.Key]; ok {
			if value, ok := entry.Value.(bool); ok {
				configurable.notify(Change{Kind: kind, Bool: value})
			}
			continue
		}
		if kind, ok := metaNumericKeys[entry.Key]; ok {
			if value, ok := entry.Value.(float64); ok {
				configurable.notify(Change{Kind: kind, Value: value})
			}
			continue
		}
		// Unknown metadata is not an error.
	}
}
