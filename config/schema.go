package config

import (
	"github.com/imagecompressor/tools/util"

	"github.com/xeipuuv/gojsonschema"
)

// Schema validates release files before they are decoded.
var Schema = initSchema()

func initSchema() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(SchemaString))
	util.Check(err)
	return s
}

// SchemaString is the stringified schema of a release file.
const SchemaString = `{
    "$schema": "http://json-schema.org/draft-07/schema#",
    "type": "object",
    "properties": {
        "name": {
            "description": "Base name of the frozen executable and of the folder distribution.",
            "type": "string",
            "pattern": "^[a-zA-Z0-9._-]+$"
        },
        "displayName": {
            "type": "string",
            "minLength": 1
        },
        "publisher": {
            "type": "string",
            "minLength": 1
        },
        "version": {
            "description": "Release version. Detected from git tags when omitted.",
            "type": "string",
            "minLength": 1
        },
        "entryPoint": {
            "type": "string",
            "minLength": 1
        },
        "icon": {
            "type": "string",
            "minLength": 1
        },
        "progId": {
            "type": "string",
            "pattern": "^[a-zA-Z][a-zA-Z0-9.]*$"
        },
        "targetOS": {
            "type": "string",
            "enum": ["windows", "linux", "darwin"]
        },
        "targetArch": {
            "type": "string",
            "pattern": "^[a-z0-9]+$"
        },
        "tools": {
            "description": "Auxiliary executables bundled under tools/.",
            "type": "array",
            "minItems": 1,
            "uniqueItems": true,
            "items": {
                "type": "string",
                "pattern": "^[^/\\\\]+$"
            }
        },
        "extensions": {
            "type": "array",
            "minItems": 1,
            "uniqueItems": true,
            "items": {
                "type": "string",
                "pattern": "^\\.[a-zA-Z0-9]+$"
            }
        },
        "freeze": {
            "type": "object",
            "properties": {
                "command": {
                    "type": "string",
                    "minLength": 1
                },
                "extraArgs": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "additionalProperties": false
        },
        "installer": {
            "type": "object",
            "properties": {
                "kind": {
                    "type": "string",
                    "enum": ["inno", "tarball"]
                },
                "compiler": {
                    "type": "string",
                    "minLength": 1
                },
                "appId": {
                    "type": "string",
                    "pattern": "^\\{[0-9A-Fa-f-]{36}\\}$"
                }
            },
            "additionalProperties": false
        },
        "sandbox": {
            "type": "object",
            "properties": {
                "image": {
                    "type": "string",
                    "minLength": 1
                }
            },
            "additionalProperties": false
        },
        "publish": {
            "type": "object",
            "properties": {
                "gcsBucket": {
                    "type": "string",
                    "minLength": 1
                },
                "githubRepo": {
                    "type": "string",
                    "pattern": "^[^/]+/[^/]+$"
                },
                "pubsubProject": {
                    "type": "string",
                    "minLength": 1
                },
                "pubsubTopic": {
                    "type": "string",
                    "minLength": 1
                }
            },
            "additionalProperties": false
        }
    },
    "additionalProperties": false
}`
