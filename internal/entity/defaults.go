package entity

var defaultRows = []Metadata{
	{Discriminator: "entity", Fields: map[string]Field{
		"fixme": {Type: TypeStr},
		"note":  {Type: TypeStr},
		"layer": {Type: TypeInt},
	}},
	{Discriminator: "named", Parent: "entity", Fields: map[string]Field{
		"name":      {Type: TypeStr},
		"alt_name":  {Type: TypeStr},
		"wikidata":  {Type: TypeStr},
		"wikipedia": {Type: TypeStr},
	}},
	{Discriminator: "road", Parent: "named", Width: true, Fields: map[string]Field{
		"type":      {Type: TypeStr, Required: true},
		"width":     {Type: TypeMeters},
		"lanes":     {Type: TypeInt},
		"oneway":    {Type: TypeBool},
		"maxspeed":  {Type: TypeInt},
		"surface":   {Type: TypeStr},
		"lit":       {Type: TypeBool},
		"is_bridge": {Type: TypeStr},
	}},
	{Discriminator: "railway", Parent: "named", Width: true, Fields: map[string]Field{
		"type":          {Type: TypeStr, Required: true},
		"width":         {Type: TypeMeters},
		"gauge":         {Type: TypeInt},
		"electrified":   {Type: TypeStr},
		"maxspeed":      {Type: TypeInt},
		"is_bridge":     {Type: TypeStr},
		"crossing_type": {Type: TypeStr},
	}},
	{Discriminator: "aerialway", Parent: "named", Width: true, Fields: map[string]Field{
		"type":      {Type: TypeStr, Required: true},
		"width":     {Type: TypeMeters},
		"length":    {Type: TypeMeters},
		"capacity":  {Type: TypeInt},
		"occupancy": {Type: TypeInt},
		"duration":  {Type: TypeInt},
		"heating":   {Type: TypeBool},
	}},
	{Discriminator: "power", Parent: "entity", Fields: map[string]Field{
		"type":         {Type: TypeStr, Required: true},
		"voltage":      {Type: TypeInt},
		"high_voltage": {Type: TypeInt},
		"low_voltage":  {Type: TypeInt},
		"location":     {Type: TypeStr},
	}},
	{Discriminator: "building", Parent: "named", Fields: map[string]Field{
		"type":        {Type: TypeStr},
		"levels":      {Type: TypeInt},
		"height":      {Type: TypeMeters},
		"roof_height": {Type: TypeMeters},
		"roof_shape":  {Type: TypeStr},
		"website":     {Type: TypeStr},
	}},
	{Discriminator: "route", Parent: "named", Fields: map[string]Field{
		"type":     {Type: TypeStr, Required: true},
		"network":  {Type: TypeStr},
		"operator": {Type: TypeStr},
		"complete": {Type: TypeBool},
	}},
}

var defaultTranslations = []Translation{
	{
		Discriminator: "route",
		Accepts:       []string{"route"},
		Renames:       map[string]string{"route": "type"},
		Removes:       []string{"ref"},
	},
	{
		Discriminator: "road",
		Accepts:       []string{"highway"},
		Renames:       map[string]string{"highway": "type", "bridge": "is_bridge"},
		Removes:       []string{"ref", "maxspeed:source"},
	},
	{
		Discriminator: "railway",
		Accepts:       []string{"railway"},
		Renames: map[string]string{
			"railway":        "type",
			"bridge":         "is_bridge",
			"crossing":       "crossing_type",
			"railway:radius": "gauge",
		},
		Unprefixes:     []string{"railway"},
		Removes:        []string{"ref", "uic_ref", "railway:ref", "maxspeed:source"},
		RemovesSubtree: []string{"ruian"},
	},
	{
		Discriminator: "aerialway",
		Accepts:       []string{"aerialway"},
		Renames:       map[string]string{"aerialway": "type"},
		Unprefixes:    []string{"aerialway"},
	},
	{
		Discriminator: "power",
		Accepts:       []string{"power"},
		Renames:       map[string]string{"power": "type"},
	},
	{
		Discriminator: "building",
		Accepts:       []string{"building"},
		Renames: map[string]string{
			"building":            "type",
			"roof:height":         "roof_height",
			"roof:shape":          "roof_shape",
			"building:roof:shape": "roof_shape",
			"webpage":             "website",
			"url":                 "website",
		},
		Unprefixes:     []string{"building"},
		RemovesSubtree: []string{"ruian"},
	},
	{
		Discriminator: "named",
		Accepts:       []string{"name"},
	},
}

// DefaultTable is the built-in field-set table.
func DefaultTable() *Table {
	t, err := NewTable(defaultRows...)
	if err != nil {
		panic(err)
	}
	return t
}

// DefaultTranslator is the built-in tag translation table.
func DefaultTranslator() *Translator {
	return NewTranslator(defaultTranslations...)
}
