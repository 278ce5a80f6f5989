package quest

type Life struct {
	Name string `json:"name"`
	Icon string `json:"icon"`
}

var Lives = []Life{
	{"Paladin", "⚔️"},
	{"Mercenary", "🗡️"},
	{"Hunter", "🏹"},
	{"Wizard", "🔮"},
	{"Carpenter", "🔨"},
	{"Blacksmith", "⚒️"},
	{"Tailor", "🪡"},
	{"Cook", "🍳"},
	{"Miner", "⛏️"},
	{"Woodcutter", "🪓"},
	{"Angler", "🎣"},
	{"Alchemist", "⚗️"},
}

func LifeNames() []string {
	names := make([]string, len(Lives))
	for i, l := range Lives {
		names[i] = l.Name
	}
	return names
}

func LifeIcon(name string) string {
	for _, l := range Lives {
		if l.Name == name {
			return l.Icon
		}
	}
	return ""
}
