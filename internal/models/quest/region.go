package quest

const (
	// LocationAll and LocationLives are the pseudo locations of the legacy location grid.
	LocationAll   = "All"
	LocationLives = "Lives"
)

var Regions = []string{"Castele", "Port Puerto", "Al Maajik", "Origin Island", "World"}

var RegionLocations = map[string][]string{
	"Castele": {
		"Castele Square",
		"Castele Artisan District",
		"Castele Shopping District",
		"West Castele",
		"East Castele",
		"South Castele",
		"Castele Castle",
		"Castele Outskirts",
		"West Grassy Plains",
		"East Grassy Plains",
		"Central Grassland",
		"Rocky Hill Shrine",
		"Forest Shrine",
		"Haniwa Cave",
		"Furlin's Grotto",
	},
	"Port Puerto": {
		"Port Puerto Palace",
		"Port Puerto Marina",
		"Port Puerto Beach District",
		"Port Puerto Palace Way",
		"Penguin Beach",
		"Tortuga Archipelago",
		"Waterfall Cave",
		"Nautilus Cave",
		"Deepsea Cave",
	},
	"Al Maajik": {
		"Al Maajik Spelltown",
		"Al Maajik Sandtown",
		"Al Maajik Outskirts",
		"Aridian Desert",
		"Desert Ravine",
		"Cacto Cove",
		"Cave of Bones",
		"Cave of Shadows",
		"Ancient Ruins",
		"Dark Sultan's Fortress",
	},
	"Origin Island": {
		"Terra Nimbus",
		"Spirit Tree",
		"Elderwood",
		"Elderwood Village",
		"Deep Elderwood",
		"Mount Snowpeak",
		"Mount Snowpeak Summit",
		"Plushling Camp",
		"Lava Cave",
		"Ancient Tower",
		"Subterranean Lake",
		"Farley's Plantation",
	},
	"World": {
		LocationAll,
	},
}

var locationRegion = func() map[string]string {
	m := make(map[string]string)
	for region, locations := range RegionLocations {
		for _, l := range locations {
			m[l] = region
		}
	}
	return m
}()

// RegionOf returns the region a location belongs to, or "" when unmapped.
func RegionOf(location string) string {
	return locationRegion[location]
}
