// Package config loads service configuration with viper.
//
// LoadConfig reads config.yml (cmd/<service>/, config/ or the working
// directory, also tried from the two parent directories), then a .env file
// loaded with godotenv, then the environment. Every field is bound to the
// variable spelled after its mapstructure path:
//
//	database.dsn          DATABASE_DSN
//	auth.jwt.secret       AUTH_JWT_SECRET
//	logging.level         LOGGING_LEVEL
//
// Structs implementing ApplyDefaults/Validate are defaulted and validated
// after unmarshalling.
package config
