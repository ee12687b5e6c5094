package util

import (
	"fmt"
	"os"

	"github.com/asaskevich/govalidator"
	"gopkg.in/yaml.v2"
)

func LoadFromYaml(filePath string, v interface{}) error {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("error reading config file %s: %v", filePath, err)
	}

	if err := yaml.Unmarshal(content, v); err != nil {
		return fmt.Errorf("error unmarshalling config file %s: %v", filePath, err)
	}

	if _, err := govalidator.ValidateStruct(v); err != nil {
		return fmt.Errorf("error validating config file %s: %v", filePath, err)
	}

	return nil
}
