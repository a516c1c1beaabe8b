package domain

type DenomUnit struct {
	Denom    string   `json:"denom"`
	Exponent uint32   `json:"exponent"`
	Aliases  []string `json:"aliases"`
}

// DenomMetadata is the bank metadata record published for the basket token.
type DenomMetadata struct {
	Description string      `json:"description"`
	DenomUnits  []DenomUnit `json:"denom_units"`
	Base        string      `json:"base"`
	Display     string      `json:"display"`
	Name        string      `json:"name"`
	Symbol      string      `json:"symbol"`
	Uri         string      `json:"uri"`
	UriHash     string      `json:"uri_hash"`
}

// MetadataUpdate carries the fields an admin may change after instantiation.
// Nil fields keep their current value.
type MetadataUpdate struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Uri         *string `json:"uri,omitempty"`
	UriHash     *string `json:"uri_hash,omitempty"`
}

// Apply overlays the update on a copy of md. Base, display, symbol and denom
// units are never touched.
func (md DenomMetadata) Apply(update MetadataUpdate) DenomMetadata {
	units := make([]DenomUnit, 0, len(md.DenomUnits))
	for _, u := range md.DenomUnits {
		units = append(units, DenomUnit{
			Denom:    u.Denom,
			Exponent: u.Exponent,
			Aliases:  append([]string(nil), u.Aliases...),
		})
	}

	out := md
	out.DenomUnits = units
	if update.Name != nil {
		out.Name = *update.Name
	}
	if update.Description != nil {
		out.Description = *update.Description
	}
	if update.Uri != nil {
		out.Uri = *update.Uri
	}
	if update.UriHash != nil {
		out.UriHash = *update.UriHash
	}
	return out
}
