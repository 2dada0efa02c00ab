// Seed loads the hospital and doctor directory from a YAML file. Existing
// entries with the same ID are replaced, so the file can be re-applied after
// edits.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"

	"clinic-backend/internal/database"
	"clinic-backend/internal/geo"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"
	"gopkg.in/yaml.v2"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type seedFile struct {
	Hospitals []seedHospital `yaml:"hospitals"`
}

type seedHospital struct {
	ID        int64                  `yaml:"id"`
	Name      string                 `yaml:"name"`
	Latitude  float64                `yaml:"latitude"`
	Longitude float64                `yaml:"longitude"`
	Metadata  map[string]interface{} `yaml:"metadata"`
	Doctors   []seedDoctor           `yaml:"doctors"`
}

type seedDoctor struct {
	ID          int64    `yaml:"id"`
	Name        string   `yaml:"name"`
	Field       string   `yaml:"field"`
	Description string   `yaml:"description"`
	Tags        []string `yaml:"tags"`
}

func main() {
	var envPath, seedPath string
	flag.StringVar(&envPath, "env", "", "path to load env from")
	flag.StringVar(&seedPath, "file", "directory.yaml", "path to the directory seed file")
	flag.Parse()

	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil {
			log.Fatalf("error loading .env file '%s': %v", envPath, err)
		}
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if databaseURL == "" {
		log.Fatal("DATABASE_URL must be set")
	}

	data, err := os.ReadFile(seedPath)
	if err != nil {
		log.Fatalf("error reading seed file: %v", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("error parsing seed file: %v", err)
	}

	if err := validate(seed); err != nil {
		log.Fatalf("invalid seed file: %v", err)
	}

	db, err := database.NewDatabase(databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	bar := progressbar.Default(int64(len(seed.Hospitals)), "seeding hospitals")
	for _, hospital := range seed.Hospitals {
		if err := upsertHospital(db, hospital); err != nil {
			log.Fatalf("error seeding hospital %q: %v", hospital.Name, err)
		}
		bar.Add(1) //nolint:errcheck
	}

	log.Printf("seeded %d hospitals", len(seed.Hospitals))
}

func validate(seed seedFile) error {
	for _, hospital := range seed.Hospitals {
		if hospital.ID == 0 || hospital.Name == "" {
			return fmt.Errorf("hospital %q requires id and name", hospital.Name)
		}
		if !geo.ValidDegrees(hospital.Latitude, hospital.Longitude) {
			return fmt.Errorf("hospital %q requires valid coordinates", hospital.Name)
		}
		for _, doctor := range hospital.Doctors {
			if doctor.ID == 0 || doctor.Name == "" || doctor.Field == "" {
				return fmt.Errorf("doctor %q requires id, name, and field", doctor.Name)
			}
		}
	}
	return nil
}

// normalizeYAML rewrites the map[interface{}]interface{} values yaml.v2
// produces for nested mappings into map[string]interface{} so they can be
// JSON encoded.
func normalizeYAML(value interface{}) interface{} {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, inner := range v {
			out[fmt.Sprint(key)] = normalizeYAML(inner)
		}
		return out
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, inner := range v {
			out[key] = normalizeYAML(inner)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, inner := range v {
			out[i] = normalizeYAML(inner)
		}
		return out
	default:
		return v
	}
}

func upsertHospital(db *gorm.DB, in seedHospital) error {
	var metadata datatypes.JSON
	if len(in.Metadata) > 0 {
		encoded, err := json.Marshal(normalizeYAML(in.Metadata))
		if err != nil {
			return err
		}
		metadata = encoded
	}

	return db.Transaction(func(tx *gorm.DB) error {
		hospital := database.Hospital{
			ID:        in.ID,
			Name:      in.Name,
			Latitude:  in.Latitude,
			Longitude: in.Longitude,
			Metadata:  metadata,
		}
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&hospital).Error; err != nil {
			return err
		}

		for _, d := range in.Doctors {
			doctor := database.Doctor{
				ID:          d.ID,
				Name:        d.Name,
				Field:       d.Field,
				Description: d.Description,
				HospitalID:  in.ID,
			}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&doctor).Error; err != nil {
				return err
			}

			// Tags are replaced wholesale so removals in the file take effect.
			if err := tx.Delete(&database.DoctorTag{}, "doctor_id = ?", d.ID).Error; err != nil {
				return err
			}
			for _, tag := range d.Tags {
				if err := tx.Create(&database.DoctorTag{DoctorID: d.ID, Tag: tag}).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
}
