package sink

const matchObservedSchema = `{
  "type": "object",
  "title": "MatchObserved",
  "properties": {
    "event_id": {"type": "string", "format": "uuid"},
    "observed_at": {"type": "string", "format": "date-time"},
    "gamertag": {"type": "string"},
    "match_id": {"type": "string"},
    "match": {
      "type": "object",
      "properties": {
        "match_id": {"type": "string"},
        "gamertag": {"type": "string"},
        "played_at": {"type": "string", "format": "date-time"},
        "outcome": {"type": "string", "enum": ["win", "loss", "draw", ""]},
        "category": {"type": "string"},
        "map_name": {"type": "string"},
        "map_thumbnail": {"type": "string"},
        "playlist_queue": {"type": "string"},
        "playlist_input": {"type": "string"},
        "kills": {"type": "integer"},
        "deaths": {"type": "integer"},
        "assists": {"type": "integer"},
        "accuracy": {"type": "number"},
        "damage_dealt": {"type": "integer"},
        "medals": {"type": "array", "items": {"type": "string"}},
        "csr": {
          "type": "object",
          "properties": {
            "pre_match": {"type": "integer"},
            "post_match": {"type": "integer"},
            "tier": {"type": "string"},
            "sub_tier": {"type": "integer"}
          }
        }
      },
      "required": ["match_id", "gamertag", "played_at", "outcome"]
    }
  },
  "required": ["event_id", "observed_at", "gamertag", "match_id", "match"],
  "additionalProperties": false
}`
