package ident

// words feeds alias generation. Short, unambiguous, lowercase nouns only;
// combined in pairs plus a random suffix, the space is large enough that
// collisions are rare even at scale.
var words = []string{
	"acorn", "amber", "anchor", "apple", "arrow", "aspen", "atlas", "aurora",
	"badge", "bamboo", "basil", "beacon", "birch", "bloom", "bolt", "breeze",
	"brook", "bridge", "cabin", "canyon", "cedar", "chime", "cliff", "cloud",
	"clover", "comet", "coral", "cove", "crane", "creek", "crest", "crystal",
	"dawn", "delta", "dune", "ember", "fable", "falcon", "fern", "field",
	"finch", "fjord", "flint", "forest", "fox", "frost", "garnet", "glade",
	"grove", "harbor", "hazel", "heron", "hill", "holly", "ivory", "jasper",
	"juniper", "kestrel", "lagoon", "lake", "lark", "laurel", "lily", "linden",
	"lotus", "lunar", "maple", "marble", "meadow", "mesa", "mist", "moss",
	"nectar", "north", "oak", "ocean", "olive", "onyx", "opal", "orchid",
	"osprey", "otter", "pearl", "pebble", "pine", "plume", "pond", "poppy",
	"prairie", "quartz", "quill", "rain", "raven", "reed", "ridge", "river",
	"robin", "rose", "rowan", "sage", "sand", "sequoia", "shade", "shore",
	"sierra", "slate", "snow", "solar", "sparrow", "spring", "spruce", "star",
	"stone", "storm", "summit", "swan", "thorn", "tide", "timber", "trail",
	"tulip", "vale", "violet", "willow", "wind", "wren", "yarrow", "zephyr",
}
