package schema

import (
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrTeamNotFound     = errors.New("team not found")
	ErrProgramNotFound  = errors.New("program not found")
	ErrDatasetNotFound  = errors.New("dataset not found")
	ErrRecordNotFound   = errors.New("record not found")
	ErrUserTeamNotFound = errors.New("user team relationship not found")
	ErrDbAccessFailed   = errors.New("db access failed")
)

func GetUser(userId uuid.UUID, db *gorm.DB) (User, error) {
	var user User

	result := db.Preload("Roles").First(&user, "id = ?", userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return user, ErrUserNotFound
		}
		slog.Error("sql error in get user", "user_id", userId, "error", result.Error)
		return user, ErrDbAccessFailed
	}

	return user, nil
}

func GetTeam(teamId uuid.UUID, db *gorm.DB) (Team, error) {
	var team Team

	result := db.First(&team, "id = ?", teamId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return team, ErrTeamNotFound
		}
		slog.Error("sql error in get team", "team_id", teamId, "error", result.Error)
		return team, ErrDbAccessFailed
	}

	return team, nil
}

func GetProgram(programId uuid.UUID, db *gorm.DB) (Program, error) {
	var program Program

	result := db.Preload("Tags").Preload("Targets").Preload("Targets.Tracks").First(&program, "id = ?", programId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return program, ErrProgramNotFound
		}
		slog.Error("sql error in get program", "program_id", programId, "error", result.Error)
		return program, ErrDbAccessFailed
	}

	return program, nil
}

func GetDataset(datasetId uuid.UUID, db *gorm.DB) (Dataset, error) {
	var dataset Dataset

	result := db.First(&dataset, "id = ?", datasetId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return dataset, ErrDatasetNotFound
		}
		slog.Error("sql error in get dataset", "dataset_id", datasetId, "error", result.Error)
		return dataset, ErrDbAccessFailed
	}

	return dataset, nil
}

func GetRecord(recordId uuid.UUID, db *gorm.DB) (Record, error) {
	var record Record

	result := db.Preload("Entries").First(&record, "id = ?", recordId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return record, ErrRecordNotFound
		}
		slog.Error("sql error in get record", "record_id", recordId, "error", result.Error)
		return record, ErrDbAccessFailed
	}

	return record, nil
}

func GetUserTeam(teamId, userId uuid.UUID, db *gorm.DB) (UserTeam, error) {
	var team UserTeam
	result := db.First(&team, "team_id = ? and user_id = ?", teamId, userId)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return team, ErrUserTeamNotFound
		}
		slog.Error("sql error in get user team", "team_id", teamId, "user_id", userId, "error", result.Error)
		return team, ErrDbAccessFailed
	}

	return team, nil
}

func GetUserTeamIds(userId uuid.UUID, db *gorm.DB) ([]uuid.UUID, error) {
	var teams []UserTeam
	result := db.Find(&teams, "user_id = ?", userId)
	if result.Error != nil {
		slog.Error("sql error in get user team ids", "user_id", userId, "error", result.Error)
		return nil, ErrDbAccessFailed
	}
	ids := make([]uuid.UUID, 0, len(teams))
	for _, team := range teams {
		ids = append(ids, team.TeamId)
	}
	return ids, nil
}

func IsTeamMember(teamId, userId uuid.UUID, db *gorm.DB) (bool, error) {
	_, err := GetUserTeam(teamId, userId, db)
	if err != nil {
		if errors.Is(err, ErrUserTeamNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// OwningTeam walks the ownership chain up to the team that owns the entity.
// A team owns itself, so team membership checks work directly on teams.
func (t *Team) OwningTeam(db *gorm.DB) (uuid.UUID, error) {
	return t.Id, nil
}

func (p *Program) OwningTeam(db *gorm.DB) (uuid.UUID, error) {
	return p.TeamId, nil
}

func (d *Dataset) OwningTeam(db *gorm.DB) (uuid.UUID, error) {
	program, err := GetProgram(d.ProgramId, db)
	if err != nil {
		return uuid.Nil, err
	}
	return program.TeamId, nil
}

func (r *Record) OwningTeam(db *gorm.DB) (uuid.UUID, error) {
	dataset, err := GetDataset(r.DatasetId, db)
	if err != nil {
		return uuid.Nil, err
	}
	return dataset.OwningTeam(db)
}
