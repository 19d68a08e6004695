package upstream

// Endpoints holds the base URLs of every upstream service. Tests point them at a local server.
type Endpoints struct {
	// Purpur serves the primary runtime (/v2/purpur).
	Purpur string
	// PaperFill serves the modern Paper API (/v3/projects).
	PaperFill string
	// PaperLegacy serves the legacy Paper API (/v2/projects).
	PaperLegacy string
	// Modrinth is the general plugin registry (/v2/project).
	Modrinth string
	// Geyser serves the Geyser and Floodgate companion projects (/v2/projects).
	Geyser string
}

// DefaultEndpoints returns the production base URLs.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Purpur:      "https://api.purpurmc.org",
		PaperFill:   "https://fill.papermc.io",
		PaperLegacy: "https://api.papermc.io",
		Modrinth:    "https://api.modrinth.com",
		Geyser:      "https://download.geysermc.org",
	}
}

// SameHost returns Endpoints that route every service to base.
func SameHost(base string) Endpoints {
	return Endpoints{
		Purpur:      base,
		PaperFill:   base,
		PaperLegacy: base,
		Modrinth:    base,
		Geyser:      base,
	}
}
