package catalog

import "strings"

// Kind selects how a recognized characteristic value is sanitized
type Kind int

const (
	KindText Kind = iota
	KindList
	KindRegistryFlag
	KindSmallObjectFlag
	KindTemperature
	KindAccuracy
)

// Canonical characteristic names used in the nested representation
const (
	KeyRange          = "Диапазон измерений температуры"
	KeyAccuracy       = "Погрешность"
	KeySightingRatio  = "Показатель визирования"
	KeyPrinciple      = "Принцип действия"
	KeySpectralRange  = "Спектральный диапазон"
	KeyMaterials      = "Измеряемые материалы и среды"
	KeyDesign         = "Исполнение"
	KeyResponseSpeed  = "Быстродействие"
	KeyPrecision      = "Точность"
	KeySightingDevice = "Устройство визирования"
	KeyRegistry       = "Госреестр"
	KeySmallObjects   = "Малоразмерные объекты"
	KeyFeatures       = "Особенности применения"
	KeyTemperatureMin = "Температура мин"
	KeyTemperatureMax = "Температура макс"
)

// Canonical flag values
const (
	Yes = "да"
	No  = "нет"
)

// Field describes one recognized characteristic
type Field struct {
	Key     string
	Column  string
	Kind    Kind
	Aliases []string
}

// Fields is the fixed set of recognized characteristics in display order.
var Fields = []Field{
	{Key: KeyRange, Column: "диапазон", Kind: KindText, Aliases: []string{"Диапазон", "Диапазон измерений"}},
	{Key: KeyAccuracy, Column: "погрешность", Kind: KindAccuracy},
	{Key: KeySightingRatio, Column: "визирование", Kind: KindText, Aliases: []string{"Показатель визирования (второе)"}},
	{Key: KeyPrinciple, Column: "принцип_действия", Kind: KindText},
	{Key: KeySpectralRange, Column: "спектральный_диапазон", Kind: KindText},
	{Key: KeyMaterials, Column: "материалы", Kind: KindList, Aliases: []string{"Измеряемые материалы"}},
	{Key: KeyDesign, Column: "исполнение", Kind: KindList},
	{Key: KeyResponseSpeed, Column: "быстродействие", Kind: KindText},
	{Key: KeyPrecision, Column: "точность", Kind: KindText},
	{Key: KeySightingDevice, Column: "устройство_визирования", Kind: KindText},
	{Key: KeyRegistry, Column: "госреестр", Kind: KindRegistryFlag},
	{Key: KeySmallObjects, Column: "для_малых_объектов", Kind: KindSmallObjectFlag, Aliases: []string{"Для малых объектов"}},
	{Key: KeyFeatures, Column: "особенности", Kind: KindList},
	{Key: KeyTemperatureMin, Column: "температура_мин", Kind: KindTemperature},
	{Key: KeyTemperatureMax, Column: "температура_макс", Kind: KindTemperature},
}

var lookup = buildLookup()

func buildLookup() map[string]*Field {
	m := make(map[string]*Field)
	for i := range Fields {
		f := &Fields[i]
		names := append([]string{f.Key, f.Column}, f.Aliases...)
		for _, name := range names {
			m[foldKey(name)] = f
		}
	}
	return m
}

// foldKey makes "Температура мин", "температура_мин" and "ТЕМПЕРАТУРА МИН" equal
func foldKey(name string) string {
	name = strings.ReplaceAll(name, "_", " ")
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// FieldFor returns the recognized field for a characteristic or column name.
func FieldFor(name string) (*Field, bool) {
	f, ok := lookup[foldKey(name)]
	return f, ok
}

// IsColumn reports whether name is a flat column name of a recognized characteristic.
func IsColumn(name string) bool {
	for _, f := range Fields {
		if f.Column == name {
			return true
		}
	}
	return false
}
