package content

const activitySchema = `{
  "type": "object",
  "required": ["title", "instructions"],
  "properties": {
    "title": {"type": "string", "minLength": 1},
    "instructions": {"type": "string"},
    "deliverable": {"type": "string"}
  }
}`

const resourcesSchema = `{
  "type": "array",
  "items": {
    "type": "object",
    "required": ["name", "url"],
    "properties": {
      "name": {"type": "string", "minLength": 1},
      "url": {"type": "string", "minLength": 1}
    }
  }
}`

const evaluationSchema = `{
  "type": "object",
  "required": ["title", "questions"],
  "properties": {
    "title": {"type": "string"},
    "questions": {
      "type": "array",
      "minItems": 1,
      "items": {
        "type": "object",
        "required": ["id", "question", "type"],
        "properties": {
          "id": {"type": "string", "minLength": 1},
          "question": {"type": "string"},
          "type": {"enum": ["single-choice", "multiple-choice", "text"]},
          "options": {"type": "array", "items": {"type": "string"}},
          "correctAnswer": {
            "oneOf": [
              {"type": "string"},
              {"type": "array", "items": {"type": "string"}}
            ]
          }
        }
      }
    }
  }
}`
