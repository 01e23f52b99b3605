package models

// hamburgThingJSON is a trimmed record from the Hamburg FROST instance.
const hamburgThingJSON = `{
  "@iot.selfLink": "https://iot.hamburg.de/v1.1/Things(7648)",
  "@iot.id": 7648,
  "name": "Zählfeld J_52.1_1_I",
  "description": "Zählfeld zur Bestimmung der vom Infrarotdetektor erfassten Fahrräder",
  "properties": {
    "topic": "Transport und Verkehr",
    "assetID": "J_52.1_1_I",
    "keywords": ["Infrarotdetektor", "Verkehrsmenge", "Hamburg"],
    "language": "de",
    "infoLastUpdate": "2021-10-12T21:07:24.253Z"
  },
  "Datastreams": [
    {
      "@iot.selfLink": "https://iot.hamburg.de/v1.1/Datastreams(16183)",
      "@iot.id": 16183,
      "name": "Fahrradaufkommen an Zählfeld J_52.1_1_I im 5-Min-Intervall",
      "description": "Die Anzahl der erfassten Fahrräder wird für ein 5-Min-Intervall aufsummiert.",
      "observationType": "http://www.opengis.net/def/observationType/OGC-OM/2.0/OM_CountObservation",
      "unitOfMeasurement": {"name": "Anzahl", "symbol": null, "definition": null},
      "observedArea": {"type": "Point", "coordinates": [9.978648204, 53.461316652]},
      "phenomenonTime": "2021-10-20T22:00:00Z/2024-12-30T20:34:59Z",
      "properties": {"topic": "Verkehr", "resultNature": "processed", "priority": 2},
      "resultTime": "2021-10-21T08:46:04.831Z/2024-12-30T20:37:31.336Z",
      "Sensor": {
        "@iot.selfLink": "https://iot.hamburg.de/v1.1/Sensors(5647)",
        "@iot.id": 5647,
        "name": "Infrarotdetektor in TermiCam2",
        "description": "Infrarotdetektor zur Erfassung von Mobilitätswerkzeugen",
        "encodingType": "application/pdf",
        "metadata": "https://flir.netx.net/file/asset/17428/original"
      }
    }
  ],
  "Locations@iot.navigationLink": "https://iot.hamburg.de/v1.1/Things(7648)/Locations",
  "Datastreams@iot.navigationLink": "https://iot.hamburg.de/v1.1/Things(7648)/Datastreams"
}`
