package schema

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Organization struct {
	Id   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null" json:"name"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type Role struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"unique;size:50;not null" json:"name"`
	Description string    `gorm:"size:254" json:"description"`
}

type User struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	Username string `gorm:"unique;size:50;not null" json:"username"`
	Email    string `gorm:"unique;size:254;not null" json:"email"`
	Password []byte `json:"-"`

	Roles []Role     `gorm:"many2many:user_roles;" json:"roles"`
	Teams []UserTeam `gorm:"constraint:OnDelete:CASCADE" json:"-"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

// HasRole reports whether any of the user's roles carries the given name.
// Roles must be preloaded.
func (u *User) HasRole(name string) bool {
	for _, role := range u.Roles {
		if role.Name == name {
			return true
		}
	}
	return false
}

type Team struct {
	Id   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null" json:"name"`

	Programs []Program `gorm:"constraint:OnDelete:SET NULL" json:"programs"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type UserTeam struct {
	UserId uuid.UUID `gorm:"type:uuid;primaryKey" json:"userId"`
	TeamId uuid.UUID `gorm:"type:uuid;primaryKey" json:"teamId"`

	User *User `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Team *Team `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}

type Program struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:254" json:"description"`

	TeamId uuid.UUID `gorm:"type:uuid;not null" json:"teamId"`
	Team   *Team     `json:"-"`

	Datasets         []Dataset         `gorm:"constraint:OnDelete:CASCADE" json:"datasets"`
	Targets          []Target          `gorm:"constraint:OnDelete:CASCADE" json:"targets"`
	Tags             []Tag             `gorm:"many2many:program_tags;" json:"tags"`
	ReportingPeriods []ReportingPeriod `gorm:"constraint:OnDelete:CASCADE" json:"reportingPeriods"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type ReportingPeriod struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProgramId uuid.UUID `gorm:"type:uuid;not null;index" json:"programId"`

	Begin       time.Time `gorm:"not null" json:"begin"`
	End         time.Time `gorm:"not null" json:"end"`
	Description string    `gorm:"size:254" json:"description"`
}

type Dataset struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:254" json:"description"`

	ProgramId uuid.UUID `gorm:"type:uuid;not null;index" json:"programId"`
	Program   *Program  `json:"-"`

	Records             []Record             `gorm:"constraint:OnDelete:CASCADE" json:"records"`
	PublishedRecordSets []PublishedRecordSet `gorm:"constraint:OnDelete:CASCADE" json:"publishedRecordSets"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type Record struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	DatasetId uuid.UUID `gorm:"type:uuid;not null;index" json:"datasetId"`
	Dataset   *Dataset  `json:"-"`

	PublicationDate time.Time `gorm:"not null" json:"publicationDate"`

	Entries []Entry `gorm:"constraint:OnDelete:CASCADE" json:"entries"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type Entry struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	RecordId uuid.UUID `gorm:"type:uuid;not null;index" json:"recordId"`

	CategoryValueId uuid.UUID      `gorm:"type:uuid;not null" json:"categoryValueId"`
	CategoryValue   *CategoryValue `json:"-"`

	PersonTypeId uuid.UUID   `gorm:"type:uuid;not null" json:"personTypeId"`
	PersonType   *PersonType `json:"-"`

	Count int `gorm:"not null" json:"count"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type PersonType struct {
	Id   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null" json:"personTypeName"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type Category struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:254" json:"description"`

	CategoryValues []CategoryValue `gorm:"constraint:OnDelete:CASCADE" json:"categoryValues"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type CategoryValue struct {
	Id   uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name string    `gorm:"size:100;not null" json:"name"`

	CategoryId uuid.UUID `gorm:"type:uuid;not null;index" json:"categoryId"`
	Category   *Category `json:"-"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type Tag struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string    `gorm:"size:100;not null" json:"name"`
	Description string    `gorm:"size:254" json:"description"`
	TagType     string    `gorm:"size:50;not null;default:'custom'" json:"tagType"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

// Target is a program's numeric representation goal for a category, e.g. 50%
// women. Tracks mark which category values count towards the goal.
type Target struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	ProgramId uuid.UUID `gorm:"type:uuid;not null;index" json:"programId"`

	CategoryId uuid.UUID `gorm:"type:uuid;not null" json:"categoryId"`
	Category   *Category `json:"-"`

	Target float64 `gorm:"not null" json:"target"`

	Tracks []Track `gorm:"constraint:OnDelete:CASCADE" json:"tracks"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

type Track struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	TargetId uuid.UUID `gorm:"type:uuid;not null;index" json:"targetId"`

	CategoryValueId uuid.UUID      `gorm:"type:uuid;not null" json:"categoryValueId"`
	CategoryValue   *CategoryValue `json:"-"`

	TargetMember bool `gorm:"not null;default:false" json:"targetMember"`
}

// PublishedRecordSet is an immutable snapshot of a dataset's aggregated
// entries at publish time. All historical statistics read the Document blob,
// never live entry rows, so published numbers stay frozen even if the
// underlying entries change later.
type PublishedRecordSet struct {
	Id uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`

	DatasetId uuid.UUID `gorm:"type:uuid;not null;index" json:"datasetId"`
	Dataset   *Dataset  `json:"-"`

	Begin time.Time `gorm:"not null" json:"begin"`
	End   time.Time `gorm:"not null;index" json:"end"`

	Document datatypes.JSON `json:"document"`

	Deleted gorm.DeletedAt `gorm:"column:deleted;index" json:"-"`
}

func AllModels() []interface{} {
	return []interface{}{
		&Organization{}, &Role{}, &User{}, &Team{}, &UserTeam{},
		&Program{}, &ReportingPeriod{}, &Dataset{}, &Record{}, &Entry{},
		&PersonType{}, &Category{}, &CategoryValue{}, &Tag{},
		&Target{}, &Track{}, &PublishedRecordSet{},
	}
}
