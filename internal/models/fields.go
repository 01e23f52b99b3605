package models

// FieldAlias pairs the internal field name with its SensorThings wire key.
type FieldAlias struct {
	Internal string
	Wire     string
}

// FieldMap is the bidirectional name table of one entity type.
// Input accepts either name; output picks one side per keyStyle.
type FieldMap []FieldAlias

type keyStyle int

const (
	wireKeys keyStyle = iota
	internalKeys
)

// WireName returns the wire key for an internal field name.
func (m FieldMap) WireName(internal string) (string, bool) {
	for _, a := range m {
		if a.Internal == internal {
			return a.Wire, true
		}
	}
	return "", false
}

// InternalName returns the internal field name for a wire key.
func (m FieldMap) InternalName(wire string) (string, bool) {
	for _, a := range m {
		if a.Wire == wire {
			return a.Internal, true
		}
	}
	return "", false
}

func (m FieldMap) key(internal string, style keyStyle) string {
	if style == internalKeys {
		return internal
	}
	if wire, ok := m.WireName(internal); ok {
		return wire
	}
	return internal
}

// lookup finds the value for an internal field, preferring the wire key.
func (m FieldMap) lookup(raw map[string]any, internal string) (any, bool) {
	if wire, ok := m.WireName(internal); ok {
		if v, ok := raw[wire]; ok {
			return v, true
		}
	}
	v, ok := raw[internal]
	return v, ok
}

func extend(base FieldMap, extra ...FieldAlias) FieldMap {
	out := make(FieldMap, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

var commonFieldMap = FieldMap{
	{Internal: "id", Wire: "@iot.id"},
	{Internal: "name", Wire: "name"},
	{Internal: "description", Wire: "description"},
	{Internal: "properties", Wire: "properties"},
}

var (
	SensorFields = extend(commonFieldMap,
		FieldAlias{Internal: "encoding_type", Wire: "encodingType"},
		FieldAlias{Internal: "metadata", Wire: "metadata"},
	)

	ObservedPropertyFields = extend(commonFieldMap,
		FieldAlias{Internal: "definition", Wire: "definition"},
	)

	DatastreamFields = extend(commonFieldMap,
		FieldAlias{Internal: "unit_of_measurement", Wire: "unitOfMeasurement"},
		FieldAlias{Internal: "observed_area", Wire: "observedArea"},
		FieldAlias{Internal: "phenomenon_time", Wire: "phenomenonTime"},
		FieldAlias{Internal: "result_time", Wire: "resultTime"},
		FieldAlias{Internal: "observation_type", Wire: "observationType"},
		FieldAlias{Internal: "sensor", Wire: "Sensor"},
		FieldAlias{Internal: "observed_property", Wire: "ObservedProperty"},
	)

	ThingFields = extend(commonFieldMap,
		FieldAlias{Internal: "datastreams", Wire: "Datastreams"},
	)
)
