package model

// Service identifies the kind of job the customer is asking for.
type Service string

const (
	ServiceJunkRemoval   Service = "不用品回収"
	ServiceRoomCleanout  Service = "部屋を丸ごと片付け"
	ServiceMoving        Service = "引越し"
	ServiceEstateCleanup Service = "遺品整理"
	ServiceHoarderClean  Service = "ゴミ屋敷片付け"
)

// AllServices lists every service the rule tables may offer, in display order.
func AllServices() []Service {
	return []Service{
		ServiceJunkRemoval,
		ServiceRoomCleanout,
		ServiceMoving,
		ServiceEstateCleanup,
		ServiceHoarderClean,
	}
}

// BuildingType options for the site address.
const (
	BuildingHouse     = "戸建て"
	BuildingApartment = "マンション・アパート"
	BuildingWarehouse = "倉庫"
	BuildingOffice    = "オフィス"
	BuildingOther     = "その他"
)

// Yes/no answers used by the parking and elevator selects.
const (
	Yes = "あり"
	No  = "なし"
)

// ContactMethod is the customer's preferred follow-up channel.
type ContactMethod string

const (
	ContactLINE  ContactMethod = "LINE"
	ContactPhone ContactMethod = "電話"
)

// DateTimeLayout is the wire layout of pickup date values (HTML datetime-local).
const DateTimeLayout = "2006-01-02T15:04"

// Target selects which address block an address lookup writes into.
type Target string

const (
	TargetSite        Target = "site"
	TargetDestination Target = "destination"
)

// Attachment captures the part of an attached file the form cares about.
type Attachment struct {
	Name string `json:"name" yaml:"name"`
	Size int64  `json:"size,omitempty" yaml:"size,omitempty"`
}

// ContactRequest is the mutable payload owned by a form session.
type ContactRequest struct {
	Name         string `json:"name" yaml:"name"`
	Phone        string `json:"phone" yaml:"phone"`
	PlatformName string `json:"platformName,omitempty" yaml:"platformName,omitempty"`

	PostalCode   string `json:"postalCode" yaml:"postalCode"`
	Prefecture   string `json:"prefecture" yaml:"prefecture"`
	City         string `json:"city" yaml:"city"`
	Address1     string `json:"address1" yaml:"address1"`
	Building     string `json:"building" yaml:"building"`
	BuildingType string `json:"buildingType" yaml:"buildingType"`
	Parking      string `json:"parking" yaml:"parking"`
	Elevator     string `json:"elevator" yaml:"elevator"`

	Service Service `json:"service" yaml:"service"`

	MovePostalCode string `json:"movePostalCode" yaml:"movePostalCode"`
	MovePrefecture string `json:"movePrefecture" yaml:"movePrefecture"`
	MoveCity       string `json:"moveCity" yaml:"moveCity"`
	MoveAddress1   string `json:"moveAddress1" yaml:"moveAddress1"`

	Items string `json:"items" yaml:"items"`
	Note  string `json:"note,omitempty" yaml:"note,omitempty"`

	Images []Attachment `json:"images,omitempty" yaml:"images,omitempty"`

	PickupDate1 string `json:"pickupDate1" yaml:"pickupDate1"`
	PickupDate2 string `json:"pickupDate2" yaml:"pickupDate2"`
	PickupDate3 string `json:"pickupDate3" yaml:"pickupDate3"`

	ContactMethod ContactMethod `json:"contactMethod" yaml:"contactMethod"`
}

// Defaults returns the record every session starts from: all fields empty,
// no attachments, follow-up over LINE.
func Defaults() ContactRequest {
	return ContactRequest{ContactMethod: ContactLINE}
}

// NeedsDestination reports whether the destination address block applies.
func (r ContactRequest) NeedsDestination() bool {
	return r.Service == ServiceMoving
}

// Clone returns a copy that shares no slices with r.
func (r ContactRequest) Clone() ContactRequest {
	out := r
	if r.Images != nil {
		out.Images = append([]Attachment(nil), r.Images...)
	}
	return out
}

// Get returns the string value stored under a form key.
func (r *ContactRequest) Get(key FieldKey) (string, bool) {
	ptr := r.slot(key)
	if ptr == nil {
		return "", false
	}
	return *ptr, true
}

// Set stores value under a form key without normalisation. Use Normalize for
// user input.
func (r *ContactRequest) Set(key FieldKey, value string) bool {
	ptr := r.slot(key)
	if ptr == nil {
		return false
	}
	*ptr = value
	return true
}

// Values flattens the request into a map keyed by form keys, suitable for
// condition evaluation.
func (r ContactRequest) Values() map[string]any {
	out := make(map[string]any, len(catalog)+1)
	for _, field := range catalog {
		if field.Kind == KindFiles {
			continue
		}
		value, _ := r.Get(field.Key)
		out[string(field.Key)] = value
	}
	out[string(FieldImages)] = len(r.Images)
	return out
}

func (r *ContactRequest) slot(key FieldKey) *string {
	switch key {
	case FieldName:
		return &r.Name
	case FieldPhone:
		return &r.Phone
	case FieldPlatformName:
		return &r.PlatformName
	case FieldPostalCode:
		return &r.PostalCode
	case FieldPrefecture:
		return &r.Prefecture
	case FieldCity:
		return &r.City
	case FieldAddress1:
		return &r.Address1
	case FieldBuilding:
		return &r.Building
	case FieldBuildingType:
		return &r.BuildingType
	case FieldParking:
		return &r.Parking
	case FieldElevator:
		return &r.Elevator
	case FieldService:
		return (*string)(&r.Service)
	case FieldMovePostalCode:
		return &r.MovePostalCode
	case FieldMovePrefecture:
		return &r.MovePrefecture
	case FieldMoveCity:
		return &r.MoveCity
	case FieldMoveAddress1:
		return &r.MoveAddress1
	case FieldItems:
		return &r.Items
	case FieldNote:
		return &r.Note
	case FieldPickupDate1:
		return &r.PickupDate1
	case FieldPickupDate2:
		return &r.PickupDate2
	case FieldPickupDate3:
		return &r.PickupDate3
	case FieldContactMethod:
		return (*string)(&r.ContactMethod)
	default:
		return nil
	}
}

// MergePolicy controls how a resolved address is written into a request.
type MergePolicy string

const (
	// MergeOverwrite replaces prefecture and city with the lookup result.
	MergeOverwrite MergePolicy = "overwrite"
	// MergeFillIfEmpty only writes fields the user has left empty.
	MergeFillIfEmpty MergePolicy = "fill-if-empty"
)

// Valid reports whether p is a known policy.
func (p MergePolicy) Valid() bool {
	return p == MergeOverwrite || p == MergeFillIfEmpty
}
