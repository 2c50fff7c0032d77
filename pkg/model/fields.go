package model

// FieldKey is the form key of a ContactRequest field.
type FieldKey string

const (
	FieldName           FieldKey = "name"
	FieldPhone          FieldKey = "phone"
	FieldPlatformName   FieldKey = "platformName"
	FieldPostalCode     FieldKey = "postalCode"
	FieldPrefecture     FieldKey = "prefecture"
	FieldCity           FieldKey = "city"
	FieldAddress1       FieldKey = "address1"
	FieldBuilding       FieldKey = "building"
	FieldBuildingType   FieldKey = "buildingType"
	FieldParking        FieldKey = "parking"
	FieldElevator       FieldKey = "elevator"
	FieldService        FieldKey = "service"
	FieldMovePostalCode FieldKey = "movePostalCode"
	FieldMovePrefecture FieldKey = "movePrefecture"
	FieldMoveCity       FieldKey = "moveCity"
	FieldMoveAddress1   FieldKey = "moveAddress1"
	FieldItems          FieldKey = "items"
	FieldNote           FieldKey = "note"
	FieldImages         FieldKey = "images"
	FieldPickupDate1    FieldKey = "pickupDate1"
	FieldPickupDate2    FieldKey = "pickupDate2"
	FieldPickupDate3    FieldKey = "pickupDate3"
	FieldContactMethod  FieldKey = "contactMethod"
)

// Kind is the input widget family a field is collected with.
type Kind string

const (
	KindText     Kind = "text"
	KindPostal   Kind = "postal"
	KindSelect   Kind = "select"
	KindTextArea Kind = "textarea"
	KindDateTime Kind = "datetime"
	KindFiles    Kind = "files"
)

// Group places a field in one of the validator's stages.
type Group string

const (
	GroupGeneral     Group = "general"
	GroupSite        Group = "site"
	GroupDestination Group = "destination"
	GroupDetails     Group = "details"
)

// Field describes one input of the form.
type Field struct {
	Key         FieldKey
	Label       string
	Placeholder string
	Kind        Kind
	Group       Group
	Options     []string
}

var catalog = []Field{
	{Key: FieldName, Label: "お名前", Placeholder: "お名前", Kind: KindText, Group: GroupGeneral},
	{Key: FieldPhone, Label: "電話番号", Placeholder: "電話番号（ハイフンなし）", Kind: KindText, Group: GroupGeneral},
	{Key: FieldPlatformName, Label: "LINE名", Kind: KindText, Group: GroupGeneral},
	{Key: FieldPostalCode, Label: "郵便番号", Placeholder: "郵便番号", Kind: KindPostal, Group: GroupSite},
	{Key: FieldPrefecture, Label: "都道府県", Placeholder: "都道府県", Kind: KindText, Group: GroupSite},
	{Key: FieldCity, Label: "市区町村", Placeholder: "市区町村", Kind: KindText, Group: GroupSite},
	{Key: FieldAddress1, Label: "番地", Placeholder: "番地", Kind: KindText, Group: GroupSite},
	{Key: FieldBuilding, Label: "建物名・部屋番号", Kind: KindText, Group: GroupSite},
	{Key: FieldBuildingType, Label: "建物種類", Kind: KindSelect, Group: GroupGeneral,
		Options: []string{BuildingHouse, BuildingApartment, BuildingWarehouse, BuildingOffice, BuildingOther}},
	{Key: FieldParking, Label: "駐車場の有無", Kind: KindSelect, Group: GroupGeneral, Options: []string{Yes, No}},
	{Key: FieldElevator, Label: "エレベーターの有無", Kind: KindSelect, Group: GroupGeneral, Options: []string{Yes, No}},
	{Key: FieldService, Label: "ご希望のサービス", Kind: KindSelect, Group: GroupGeneral},
	{Key: FieldMovePostalCode, Label: "引越し先 郵便番号", Placeholder: "郵便番号", Kind: KindPostal, Group: GroupDestination},
	{Key: FieldMovePrefecture, Label: "引越し先 都道府県", Placeholder: "都道府県", Kind: KindText, Group: GroupDestination},
	{Key: FieldMoveCity, Label: "引越し先 市区町村", Placeholder: "市区町村", Kind: KindText, Group: GroupDestination},
	{Key: FieldMoveAddress1, Label: "引越し先 番地・建物名", Placeholder: "番地・建物名", Kind: KindText, Group: GroupDestination},
	{Key: FieldItems, Label: "回収・引越しする物の種類・個数", Kind: KindTextArea, Group: GroupDetails},
	{Key: FieldNote, Label: "ご相談内容", Kind: KindTextArea, Group: GroupDetails},
	{Key: FieldImages, Label: "添付画像", Kind: KindFiles, Group: GroupDetails},
	{Key: FieldPickupDate1, Label: "お引き取り希望日時（第1希望）", Kind: KindDateTime, Group: GroupGeneral},
	{Key: FieldPickupDate2, Label: "お引き取り希望日時（第2希望）", Kind: KindDateTime, Group: GroupGeneral},
	{Key: FieldPickupDate3, Label: "お引き取り希望日時（第3希望）", Kind: KindDateTime, Group: GroupGeneral},
	{Key: FieldContactMethod, Label: "やり取り方法", Kind: KindSelect, Group: GroupGeneral,
		Options: []string{string(ContactLINE), string(ContactPhone)}},
}

// Fields returns the field catalog in form order. The slice is a copy.
func Fields() []Field {
	out := make([]Field, len(catalog))
	for i, field := range catalog {
		out[i] = field
		out[i].Options = append([]string(nil), field.Options...)
	}
	return out
}

// Lookup returns the catalog entry for key.
func Lookup(key FieldKey) (Field, bool) {
	for _, field := range catalog {
		if field.Key == key {
			return field, true
		}
	}
	return Field{}, false
}

// AddressKeys names the fields of one address block.
type AddressKeys struct {
	PostalCode FieldKey
	Prefecture FieldKey
	City       FieldKey
	Address1   FieldKey
}

// AddressFor returns the field keys backing an address block.
func AddressFor(target Target) (AddressKeys, bool) {
	switch target {
	case TargetSite:
		return AddressKeys{FieldPostalCode, FieldPrefecture, FieldCity, FieldAddress1}, true
	case TargetDestination:
		return AddressKeys{FieldMovePostalCode, FieldMovePrefecture, FieldMoveCity, FieldMoveAddress1}, true
	default:
		return AddressKeys{}, false
	}
}

// TargetOf reports which address block a postal code field feeds.
func TargetOf(key FieldKey) (Target, bool) {
	switch key {
	case FieldPostalCode:
		return TargetSite, true
	case FieldMovePostalCode:
		return TargetDestination, true
	default:
		return "", false
	}
}
